package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"greensense/internal/core/config"
	"greensense/internal/shared/util"
	"greensense/internal/ui/report"

	"github.com/spf13/cobra"
)

// runFlags are the rule selection and output flags shared by analyze and
// watch.
type runFlags struct {
	disable        []string
	dupWithinOnly  bool
	dupBetweenOnly bool
	format         string
	output         string
	noHistory      bool
	noCache        bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&f.disable, "disable", nil, "Rules to skip, comma separated (e.g. DeadCode,LongMethod)")
	flags.BoolVar(&f.dupWithinOnly, "dup-within-only", false, "Only look for duplicated blocks inside functions")
	flags.BoolVar(&f.dupBetweenOnly, "dup-between-only", false, "Only look for duplicated functions")
	flags.StringVarP(&f.format, "format", "f", "", "Report format: console, json, sarif, tsv")
	flags.StringVarP(&f.output, "output", "o", "", "Write the report to a file instead of stdout")
	flags.BoolVar(&f.noHistory, "no-history", false, "Do not record the run in the history database")
	flags.BoolVar(&f.noCache, "no-cache", false, "Do not read or write the issue cache")
	cmd.MarkFlagsMutuallyExclusive("dup-within-only", "dup-between-only")
}

// apply layers the flags over cfg and validates the result.
func (f *runFlags) apply(cfg *config.Config) error {
	if len(f.disable) > 0 {
		names := make([]string, 0, len(f.disable))
		for _, name := range f.disable {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if err := config.ValidateRuleNames(names); err != nil {
			return err
		}
		cfg.Rules.Disabled = append(cfg.Rules.Disabled, names...)
	}
	switch {
	case f.dupWithinOnly && f.dupBetweenOnly:
		return fmt.Errorf("--dup-within-only and --dup-between-only cannot be used together")
	case f.dupWithinOnly:
		cfg.Rules.DuplicatedCode.CheckWithinFunctions = true
		cfg.Rules.DuplicatedCode.CheckBetweenFunctions = false
	case f.dupBetweenOnly:
		cfg.Rules.DuplicatedCode.CheckWithinFunctions = false
		cfg.Rules.DuplicatedCode.CheckBetweenFunctions = true
	}
	if f.format != "" {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(f.format))
	}
	if f.output != "" {
		cfg.Output.Path = f.output
	}
	if f.noHistory {
		cfg.History.Enabled = false
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// loadConfig resolves the configuration file and applies f. It returns the
// path of the file read, empty when running on defaults.
func (f *runFlags) loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return nil, "", err
	}
	if err := f.apply(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// writeReport renders rep to the configured file, or to stdout.
func writeReport(stdout io.Writer, cfg *config.Config, rep report.Report) error {
	if cfg.Output.Path == "" {
		return report.Write(stdout, cfg.Output.Format, rep)
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, cfg.Output.Format, rep); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(cfg.Output.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", cfg.Output.Path, err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", cfg.Output.Path)
	return nil
}

func targetPath(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
