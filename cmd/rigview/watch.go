package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/logger"
	"github.com/Faultbox/rigview/internal/model"
)

func cmdWatch(args []string, out io.Writer) error {
	s, err := openModel("watch", args, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	current := s.model
	printWatchSummary(out, current, s.cfg.Animation.ClipIndex, s.cfg.Animation.PoseCapacity)

	return watchFile(ctx, s.src.watchPath(), s.cfg.Watch.Debounce, func() {
		m, err := s.src.load(s.cfg)
		if err != nil {
			// Keep the last good model; the file may be mid-write.
			logger.Warn("reload failed", zap.Stringer("source", s.src), zap.Error(err))
			return
		}
		current = m
		printWatchSummary(out, current, s.cfg.Animation.ClipIndex, s.cfg.Animation.PoseCapacity)
	})
}

func printWatchSummary(out io.Writer, m *model.Model, clipIndex, capacity int) {
	a := m.NewAnimator(clipIndex, capacity)
	a.Update(0)
	status := "rest"
	if c := a.Clip(); c != nil && !a.Degenerate() {
		status = fmt.Sprintf("clip %q %.3fs", c.Name, c.Seconds())
	}
	fmt.Fprintf(out, "%s  %s: %d nodes, %d bones, %d clips, %d vertices, %s\n",
		time.Now().Format("15:04:05"), m.Name, m.Root.Count(), m.Bones.Count(), len(m.Clips), m.VertexCount(), status)
}

// watchFile calls reload after path changes and no further change arrives
// for debounce. It watches the parent directory so files replaced by rename
// keep being seen. It returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching model", zap.String("path", target), zap.Duration("debounce", debounce))

	// pending is nil until a change arrives.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("model changed", zap.String("op", event.Op.String()))
			pending = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-pending:
			pending = nil
			reload()
		}
	}
}
