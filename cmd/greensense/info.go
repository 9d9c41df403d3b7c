package main

import (
	"encoding/json"
	"fmt"
	"os"

	"greensense/internal/core/app"

	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print line, function and class counts of a Python file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := app.ReadCodeInfo(nil, args[0])
		if err != nil {
			return err
		}
		if infoJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Printf("%s\n  lines:     %d\n  functions: %d\n  classes:   %d\n", info.Path, info.Lines, info.Functions, info.Classes)
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(infoCmd)
}
