package main

import (
	"os"

	"greensense/internal/core/app"

	"github.com/spf13/cobra"
)

var (
	analyzeFlags        runFlags
	analyzeFailOnIssues bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyse a Python file or project once",
	Long: `Analyse a Python file, or every Python file below a directory.

A directory is analysed in project mode: dead code is judged against the
whole project. A single file is judged on its own.

Examples:
  greensense analyze
  greensense analyze src/ --disable DeadCode
  greensense analyze app.py --dup-within-only
  greensense analyze . --format sarif --output reports/greensense.sarif`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeFailOnIssues, "fail-on-issues", false, "Exit with status 1 when any issue is found")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := analyzeFlags.loadConfig()
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

	rep, err := a.Run(ctx, targetPath(args))
	if err != nil {
		return err
	}
	if err := writeReport(os.Stdout, cfg, rep); err != nil {
		return err
	}
	if analyzeFailOnIssues && len(rep.Issues) > 0 {
		return errIssuesFound
	}
	return nil
}
