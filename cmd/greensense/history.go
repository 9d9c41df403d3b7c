package main

import (
	"fmt"
	"os"

	"greensense/internal/core/app"
	"greensense/internal/ui/report"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show recorded runs and the code smell trend of a path",
	Long: `Show the runs recorded for a path, oldest first, and compare the code
smell lines of the last two.

Examples:
  greensense history
  greensense history src/ --limit 5 --format tsv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "console", "Output format: console, json, tsv")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	var flags runFlags
	cfg, _, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is disabled in the configuration")
	}
	cfg.Cache.Enabled = false

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.History(cmd.Context(), targetPath(args), historyLimit)
	if err != nil {
		return err
	}

	switch historyFormat {
	case "console":
		_, err = fmt.Fprint(os.Stdout, report.RenderHistoryConsole(runs))
	case "json":
		var data []byte
		data, err = report.RenderHistoryJSON(runs)
		if err == nil {
			_, err = fmt.Fprintln(os.Stdout, string(data))
		}
	case "tsv":
		_, err = os.Stdout.Write(report.RenderHistoryTSV(runs))
	default:
		err = fmt.Errorf("unknown history format %q", historyFormat)
	}
	return err
}
