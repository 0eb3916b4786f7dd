package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test animation defaults
	if cfg.Animation.DefaultTicksPerSecond != 25 {
		t.Errorf("expected 25 ticks per second, got %f", cfg.Animation.DefaultTicksPerSecond)
	}
	if cfg.Animation.PoseCapacity != 100 {
		t.Errorf("expected pose capacity 100, got %d", cfg.Animation.PoseCapacity)
	}
	if cfg.Animation.ClipIndex != 0 {
		t.Errorf("expected clip index 0, got %d", cfg.Animation.ClipIndex)
	}

	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("expected debounce 200ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Output.Precision != 4 {
		t.Errorf("expected precision 4, got %d", cfg.Output.Precision)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
animation:
  default_ticks_per_second: 30
  pose_capacity: 64
  clip_index: 2

data:
  model_paths: ["models", "/srv/rigs"]
  grf_paths: ["data.grf"]

watch:
  debounce: 1s

output:
  precision: 2

logging:
  level: "debug"
  format: "json"
  log_file: "rigview.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Animation.DefaultTicksPerSecond != 30 {
		t.Errorf("expected 30 ticks per second, got %f", cfg.Animation.DefaultTicksPerSecond)
	}
	if cfg.Animation.PoseCapacity != 64 {
		t.Errorf("expected pose capacity 64, got %d", cfg.Animation.PoseCapacity)
	}
	if cfg.Animation.ClipIndex != 2 {
		t.Errorf("expected clip index 2, got %d", cfg.Animation.ClipIndex)
	}
	if len(cfg.Data.ModelPaths) != 2 || cfg.Data.ModelPaths[1] != "/srv/rigs" {
		t.Errorf("unexpected model paths %v", cfg.Data.ModelPaths)
	}
	if len(cfg.Data.GRFPaths) != 1 || cfg.Data.GRFPaths[0] != "data.grf" {
		t.Errorf("unexpected grf paths %v", cfg.Data.GRFPaths)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Output.Precision != 2 {
		t.Errorf("expected precision 2, got %d", cfg.Output.Precision)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Logging.LogFile != "rigview.log" {
		t.Errorf("expected log file 'rigview.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
animation:
  pose_capacity: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// No config file exists - should return empty
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	if err := os.WriteFile("config.yaml", []byte("output:\n  precision: 3\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "no flags keep defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.ClipIndex != 0 || cfg.Animation.PoseCapacity != 100 {
					t.Errorf("defaults changed: %+v", cfg.Animation)
				}
			},
		},
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "clip and capacity",
			args: []string{"-clip", "3", "-capacity", "256"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.ClipIndex != 3 {
					t.Errorf("expected clip 3, got %d", cfg.Animation.ClipIndex)
				}
				if cfg.Animation.PoseCapacity != 256 {
					t.Errorf("expected capacity 256, got %d", cfg.Animation.PoseCapacity)
				}
			},
		},
		{
			name: "ticks per second",
			args: []string{"-tps", "60"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.DefaultTicksPerSecond != 60 {
					t.Errorf("expected 60 tps, got %f", cfg.Animation.DefaultTicksPerSecond)
				}
			},
		},
		{
			name: "repeated grf",
			args: []string{"-grf", "data.grf", "-grf", "rdata.grf"},
			verify: func(t *testing.T, cfg *Config) {
				if len(cfg.Data.GRFPaths) != 2 || cfg.Data.GRFPaths[1] != "rdata.grf" {
					t.Errorf("unexpected grf paths %v", cfg.Data.GRFPaths)
				}
			},
		},
		{
			name: "log file",
			args: []string{"-log", "out.log"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			applyFlags(cfg, flags)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
animation:
  pose_capacity: 50
  clip_index: 1
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-capacity", "200"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Capacity should be from flag (200), not file (50)
	if cfg.Animation.PoseCapacity != 200 {
		t.Errorf("expected capacity 200 from flag, got %d", cfg.Animation.PoseCapacity)
	}
	// Clip should be from file (1) since no flag override
	if cfg.Animation.ClipIndex != 1 {
		t.Errorf("expected clip 1 from file, got %d", cfg.Animation.ClipIndex)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "animation:\n  default_ticks_per_second: -1\noutput:\n  precision: 12\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(&Flags{Config: configPath, Clip: -1})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Animation.ClipIndex = 4
	cfg.Data.ModelPaths = []string{"assets"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.Animation.ClipIndex != 4 || len(loaded.Data.ModelPaths) != 1 || loaded.Data.ModelPaths[0] != "assets" {
		t.Errorf("saved config did not round trip: %+v", loaded)
	}
}

func TestSaveToRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Output.Precision = -1
	if err := cfg.SaveTo(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("invalid config was written")
	}
}

func TestSave(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := Default().Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(ConfigDir(), "config.yaml") {
		t.Errorf("saved to %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# rigview configuration") {
		t.Errorf("missing header:\n%s", data)
	}
}

func TestFindModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "robot.glb")
	if err := os.WriteFile(modelPath, []byte("glTF"), 0644); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}

	cfg := Default()
	cfg.Data.ModelPaths = []string{filepath.Join(dir, "missing"), dir}

	got, err := cfg.FindModel("robot.glb")
	if err != nil {
		t.Fatalf("FindModel: %v", err)
	}
	if got != modelPath {
		t.Errorf("got %s, want %s", got, modelPath)
	}

	if _, err := cfg.FindModel("nope.glb"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
