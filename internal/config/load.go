package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
// flags may be nil.
func Load(flags *Flags) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := flags.ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "rigview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "rigview")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "rigview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "rigview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects settings the animation pipeline cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Animation.DefaultTicksPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: animation.default_ticks_per_second must be positive", ErrInvalidConfig))
	}
	if c.Animation.PoseCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: animation.pose_capacity must not be negative", ErrInvalidConfig))
	}
	if c.Animation.ClipIndex < 0 {
		errs = append(errs, fmt.Errorf("%w: animation.clip_index must not be negative", ErrInvalidConfig))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig))
	}
	if c.Output.Precision < 0 || c.Output.Precision > 9 {
		errs = append(errs, fmt.Errorf("%w: output.precision must be between 0 and 9", ErrInvalidConfig))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format must be console or json", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// FindModel resolves a model path. Absolute and existing paths are returned
// as is; otherwise each model path is tried in order.
func (c *Config) FindModel(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	for _, dir := range c.Data.ModelPaths {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("model %q not found in %v: %w", name, c.Data.ModelPaths, os.ErrNotExist)
}
