package main

import (
	"log/slog"
	"os"

	"greensense/internal/core/app"
	"greensense/internal/core/config"
	"greensense/internal/ui/report"

	"github.com/spf13/cobra"
)

var watchFlags runFlags

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-analyse a project whenever a Python file changes",
	Long: `Analyse a path, then keep re-analysing it as Python files change.

Bursts of changes are debounced and runs are rate limited. Files whose
content did not change are served from the issue cache. Edits to the
configuration file are picked up without a restart.

Examples:
  greensense watch
  greensense watch src/ --disable DuplicatedCode`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchFlags.register(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, cfgFile, err := watchFlags.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	stop, err := startObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfgFile != "" && cfg.Watch.ReloadConfigFiles {
		cw := config.NewWatcher(cfgFile, func(next *config.Config) {
			if err := watchFlags.apply(next); err != nil {
				slog.Warn("ignoring reloaded config", "path", cfgFile, "error", err)
				return
			}
			if err := a.Reload(next); err != nil {
				slog.Warn("ignoring reloaded config", "path", cfgFile, "error", err)
				return
			}
			slog.Info("config reloaded", "path", cfgFile)
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", cfgFile, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	return a.Watch(ctx, targetPath(args), func(rep report.Report) {
		if err := writeReport(os.Stdout, a.Config(), rep); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
}
