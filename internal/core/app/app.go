// Package app wires configuration, the rule engine, the issue cache and the
// run history into analysis runs.
package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"greensense/internal/core/config"
	"greensense/internal/data/cache"
	"greensense/internal/data/history"
	"greensense/internal/engine/discovery"
	"greensense/internal/engine/parser"
	"greensense/internal/engine/rules"
	"greensense/internal/shared/observability"
	"greensense/internal/ui/report"
)

type App struct {
	Parser *parser.Parser

	mu       sync.RWMutex
	cfg      *config.Config
	walker   *discovery.Walker
	analyzer *Analyzer

	cache   *cache.Cache
	history *history.Store
}

// New builds an App from cfg. The issue cache and the history database are
// opened only when enabled.
func New(cfg *config.Config) (*App, error) {
	a := &App{Parser: parser.NewParser()}
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.Cache.Path, cfg.Cache.MaxEntries)
		if err != nil {
			return nil, err
		}
		a.cache = c
	}
	if err := a.Reload(cfg); err != nil {
		return nil, err
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
	}
	return a, nil
}

// Reload rebuilds the rule set and exclusions from cfg. The issue cache and
// history stay open; cached issues of other settings are never reused since
// the settings are part of the cache key.
func (a *App) Reload(cfg *config.Config) error {
	walker, err := discovery.New(cfg.DiscoveryOptions())
	if err != nil {
		return err
	}
	opts := cfg.RuleOptions()
	rs, err := rules.Build(opts, walker, a.Parser)
	if err != nil {
		return err
	}
	fp, err := settingsFingerprint(opts)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.walker = walker
	a.analyzer = NewAnalyzer(AnalyzerOptions{
		Rules:       rs,
		Parser:      a.Parser,
		Walker:      walker,
		Cache:       a.cache,
		Fingerprint: fp,
		Workers:     cfg.Performance.Workers,
	})
	return nil
}

// settingsFingerprint ignores settings that cannot change the issues found.
func settingsFingerprint(opts rules.Options) (uint64, error) {
	opts.DeadCode = rules.DeadCodeConfig{}
	return cache.Fingerprint(opts)
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) Analyzer() *Analyzer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.analyzer
}

func (a *App) Walker() *discovery.Walker {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.walker
}

// Run analyses path, records the run in the history when enabled and
// returns the report. History failures are logged, never fatal.
func (a *App) Run(ctx context.Context, path string) (report.Report, error) {
	analyzer := a.Analyzer()
	res, err := analyzer.AnalyzePath(ctx, path)
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Report{
		Root:     res.Root,
		Mode:     res.Mode,
		Files:    len(res.Files),
		Issues:   res.Issues,
		Rules:    report.RuleInfos(analyzer.Rules()),
		Duration: res.Duration,
	}
	smell := report.SmellLines(res.Issues)
	observability.SmellLines.Set(float64(smell))

	if a.history != nil {
		trend, err := a.record(ctx, path, res, smell)
		if err != nil {
			slog.Warn("failed to record run history", "path", a.history.Path(), "error", err)
		} else {
			rep.Trend = trend.String()
		}
	}
	if a.cache != nil {
		if err := a.cache.Save(); err != nil {
			slog.Warn("failed to save issue cache", "error", err)
		}
	}
	return rep, nil
}

func (a *App) record(ctx context.Context, path string, res Result, smell int) (history.Trend, error) {
	key := ProjectKey(path)
	_, err := a.history.SaveRun(ctx, history.Run{
		ProjectKey: key,
		Mode:       res.Mode.String(),
		Files:      len(res.Files),
		Issues:     len(res.Issues),
		SmellLines: smell,
		Duration:   res.Duration,
		RuleCounts: report.CountByRule(res.Issues),
	})
	if err != nil {
		return history.Trend{}, err
	}
	return a.history.Trend(ctx, key)
}

// History returns up to limit recorded runs of path, oldest first.
func (a *App) History(ctx context.Context, path string, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, errors.New("run history is disabled")
	}
	return a.history.RecentRuns(ctx, ProjectKey(path), limit)
}

// ProjectKey identifies the runs of one analysed path in the history.
func ProjectKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Close persists the issue cache and closes the history database.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Save())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return errors.Join(errs...)
}
