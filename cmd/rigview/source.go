package main

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/assets"
	"github.com/Faultbox/rigview/internal/config"
	"github.com/Faultbox/rigview/internal/logger"
	"github.com/Faultbox/rigview/internal/model"
)

// modelSource locates a model either on disk or inside a GRF archive.
type modelSource struct {
	name  string // file path, or entry name inside an archive
	entry *assets.Entry
}

// watchPath is the file whose changes require a reload.
func (s modelSource) watchPath() string {
	if s.entry != nil {
		return s.entry.Archive
	}
	return s.name
}

func (s modelSource) String() string {
	if s.entry != nil {
		return s.entry.String()
	}
	return s.name
}

// openArchives stacks the configured archives, skipping ones that fail to
// open.
func openArchives(cfg *config.Config) *assets.Manager {
	mgr := assets.NewManager(logger.Named("assets"))
	for _, path := range cfg.Data.GRFPaths {
		if err := mgr.AddArchive(path); err != nil {
			logger.Warn("skipping archive", zap.String("path", path), zap.Error(err))
		}
	}
	return mgr
}

// resolveSource finds name in the model paths, then in the configured
// archives.
func resolveSource(cfg *config.Config, name string) (modelSource, error) {
	path, err := cfg.FindModel(name)
	if err == nil {
		return modelSource{name: path}, nil
	}
	if !errors.Is(err, os.ErrNotExist) || len(cfg.Data.GRFPaths) == 0 {
		return modelSource{}, err
	}

	mgr := openArchives(cfg)
	defer mgr.Close()
	if e, ok := mgr.Find(name); ok {
		return modelSource{name: name, entry: &e}, nil
	}
	return modelSource{}, err
}

// load reads the model and gives clips without a rate the configured one.
func (s modelSource) load(cfg *config.Config) (*model.Model, error) {
	var (
		m   *model.Model
		err error
	)
	if s.entry == nil {
		m, err = model.Load(s.name, logger.Named("model"))
	} else {
		mgr := openArchives(cfg)
		m, err = mgr.LoadModel(s.name)
		mgr.Close()
	}
	if err != nil {
		return nil, err
	}

	for _, c := range m.Clips {
		if c.TicksPerSecond == 0 {
			c.TicksPerSecond = cfg.Animation.DefaultTicksPerSecond
		}
	}
	return m, nil
}
