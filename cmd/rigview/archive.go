package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/archive"
	"github.com/Faultbox/rigview/internal/assets"
	"github.com/Faultbox/rigview/internal/config"
	"github.com/Faultbox/rigview/internal/logger"
)

func cmdList(args []string, out io.Writer) error {
	var limit int
	fs, cfg, err := parseCommand("list", args, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "n", 0, "Limit output to N models (0 = all)")
	})
	if err != nil {
		return err
	}
	if len(cfg.Data.GRFPaths) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rigview list -grf <file.grf> [-n N] [pattern]")
		return errUsage
	}

	mgr, err := openArchivesStrict(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	entries := mgr.Models(fs.Arg(0))
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for _, e := range entries {
		fmt.Fprintln(out, e)
	}
	logger.Debug("listed models", zap.Int("count", len(entries)), zap.String("pattern", fs.Arg(0)))
	return nil
}

// openArchivesStrict is openArchives for commands that are only about the
// archives, where a bad one is an error.
func openArchivesStrict(cfg *config.Config) (*assets.Manager, error) {
	mgr := assets.NewManager(logger.Named("assets"))
	for _, path := range cfg.Data.GRFPaths {
		if err := mgr.AddArchive(path); err != nil {
			mgr.Close()
			return nil, err
		}
	}
	return mgr, nil
}

func cmdPack(args []string, out io.Writer) error {
	var output string
	fs, _, err := parseCommand("pack", args, func(fs *flag.FlagSet) {
		fs.StringVar(&output, "o", "", "Output archive path")
	})
	if err != nil {
		return err
	}
	if output == "" || fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rigview pack -o <out.grf> <file>...")
		return errUsage
	}

	files := make([]archive.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, archive.File{Name: filepath.ToSlash(filepath.Clean(path)), Data: data})
	}

	var buf bytes.Buffer
	if err := archive.Write(&buf, files); err != nil {
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	fmt.Fprintf(out, "Packed %d files into %s\n", len(files), output)
	return nil
}
