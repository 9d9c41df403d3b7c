package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"greensense/internal/core/watcher"
	"greensense/internal/shared/util"
	"greensense/internal/ui/report"
)

// Watch analyses path once, then again whenever a Python file below it
// changes, until ctx is done. Unchanged files are served from the issue
// cache. Every report is handed to onReport.
func (a *App) Watch(ctx context.Context, path string, onReport func(report.Report)) error {
	rep, err := a.Run(ctx, path)
	if err != nil {
		return err
	}
	onReport(rep)

	root := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		root = filepath.Dir(path)
	}

	cfg := a.Config()
	w, err := watcher.New(watcher.Options{
		Root:     root,
		Walker:   a.Walker(),
		Debounce: cfg.Watch.Debounce,
		Limiter:  util.NewLimiter(cfg.Watch.MaxRunsPerSecond, 1),
	}, func(paths []string) {
		slog.Info("detected changes", "count", len(paths))
		rep, err := a.Run(ctx, path)
		if err != nil {
			slog.Error("re-analysis failed", "path", path, "error", err)
			return
		}
		onReport(rep)
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Close()
		return err
	}
	slog.Info("watching for changes", "root", root)

	<-ctx.Done()
	return w.Close()
}
