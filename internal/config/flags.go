package config

import (
	"flag"
	"strings"
)

// Flags holds the command-line overrides shared by every command.
type Flags struct {
	Config   string
	Debug    bool
	Clip     int
	Capacity int
	TPS      float64
	LogFile  string
	GRF      stringList
}

// stringList is a flag that may be repeated.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Clip, "clip", -1, "Clip index to play")
	fs.IntVar(&f.Capacity, "capacity", 0, "Minimum pose buffer size")
	fs.Float64Var(&f.TPS, "tps", 0, "Ticks per second for clips without a rate")
	fs.StringVar(&f.LogFile, "log", "", "Also write logs to this file")
	fs.Var(&f.GRF, "grf", "GRF archive to search for models (repeatable)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Clip >= 0 {
		cfg.Animation.ClipIndex = f.Clip
	}
	if f.Capacity > 0 {
		cfg.Animation.PoseCapacity = f.Capacity
	}
	if f.TPS > 0 {
		cfg.Animation.DefaultTicksPerSecond = float32(f.TPS)
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if len(f.GRF) > 0 {
		cfg.Data.GRFPaths = append([]string(nil), f.GRF...)
	}
}
