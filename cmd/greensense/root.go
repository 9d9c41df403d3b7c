package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"greensense/internal/core/config"
	"greensense/internal/shared/observability"
	"greensense/internal/shared/version"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// errIssuesFound makes analyze exit with status 1 under --fail-on-issues.
var errIssuesFound = errors.New("code smells found")

var rootCmd = &cobra.Command{
	Use:   "greensense",
	Short: "Detect code smells in Python projects",
	Long: `greensense parses Python source with tree-sitter and reports God classes,
long methods, mutable default arguments, duplicated code and dead code.

Examples:
  greensense analyze src/
  greensense analyze app.py --format json
  greensense watch . --disable DeadCode
  greensense history .`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Path to config file (default ./%s when present)", config.DefaultFileName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func exitCode(err error) int {
	if errors.Is(err, errIssuesFound) {
		return 1
	}
	return 2
}

// startObservability starts the metrics endpoint and the trace exporter
// when configured. The returned function stops both.
func startObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	var server *observability.Server
	if cfg.Observability.MetricsAddr != "" {
		server = observability.NewServer(cfg.Observability.MetricsAddr)
		if err := server.Start(ctx); err != nil {
			return nil, err
		}
	}
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		if server != nil {
			_ = server.Stop(ctx)
		}
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
		if server != nil {
			if err := server.Stop(stopCtx); err != nil {
				slog.Warn("failed to stop metrics server", "error", err)
			}
		}
	}, nil
}
