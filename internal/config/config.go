// Package config handles rigview configuration loading and management.
package config

import "time"

// Config holds all rigview settings.
type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Data      DataConfig      `yaml:"data"`
	Watch     WatchConfig     `yaml:"watch"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnimationConfig holds clip playback settings.
type AnimationConfig struct {
	DefaultTicksPerSecond float32 `yaml:"default_ticks_per_second"` // Used by clips that declare no rate
	PoseCapacity          int     `yaml:"pose_capacity"`            // Minimum pose buffer size
	ClipIndex             int     `yaml:"clip_index"`
}

// DataConfig holds model file locations.
type DataConfig struct {
	ModelPaths []string `yaml:"model_paths"` // Directories searched for relative model paths
	GRFPaths   []string `yaml:"grf_paths"`   // GRF archives searched after the model paths
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// OutputConfig holds how command results are printed.
type OutputConfig struct {
	Precision int `yaml:"precision"` // Decimal places for matrices and vectors
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			DefaultTicksPerSecond: 25,
			PoseCapacity:          100,
			ClipIndex:             0,
		},
		Data: DataConfig{
			ModelPaths: []string{"."},
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Output: OutputConfig{
			Precision: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}
