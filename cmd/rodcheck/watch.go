package main

import (
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rodcheck/internal/config"
)

// Debounce rapid saves; editors often write a file several times.
const watchDebounce = 500 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files on save,
	// which would drop a direct file watch.
	absPath, err := filepath.Abs(cfgPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	run := func() {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			logger.Error("suite not runnable", zap.Error(err))
			return
		}
		applyLogLevel(cfg)
		if err := runSuite(ctx, cfg); err != nil {
			logger.Error("suite failed", zap.Error(err))
		}
	}

	logger.Info("watching suite", zap.String("path", absPath))
	run()

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastRun) < watchDebounce {
				continue
			}
			lastRun = time.Now()
			logger.Info("suite changed, re-running", zap.String("event", ev.Op.String()))
			run()
		}
	}
}
