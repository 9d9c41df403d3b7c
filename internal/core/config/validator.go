package config

import (
	"fmt"
	"strings"

	"greensense/internal/core/errors"
	"greensense/internal/engine/discovery"
	"greensense/internal/engine/rules"

	"github.com/hbollon/go-edlib"
)

// maxSuggestionDistance bounds how far a typo may be from a rule name and
// still get a suggestion.
const maxSuggestionDistance = 3

var formats = []string{FormatConsole, FormatJSON, FormatSARIF, FormatTSV}

func validate(cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Validate returns every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateRules,
		validateExclude,
		validateOutput,
		validateStorage,
		validatePerformance,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return validationError(fmt.Sprintf("unsupported config version %d; supported version is 1", cfg.Version))
	}
	return nil
}

func validateRules(cfg *Config) error {
	dc := cfg.Rules.DuplicatedCode
	if dc.MinStatements < 1 {
		return validationError(fmt.Sprintf("rules.duplicated_code.min_statements must be >= 1, got %d", dc.MinStatements))
	}
	if dc.SimilarityThreshold < 0 || dc.SimilarityThreshold > 1 {
		return validationError(fmt.Sprintf("rules.duplicated_code.similarity_threshold must be within [0, 1], got %g", dc.SimilarityThreshold))
	}
	return ValidateRuleNames(cfg.Rules.Disabled)
}

// ValidateRuleNames rejects names that are not rules, suggesting the closest
// rule name when one is near enough.
func ValidateRuleNames(names []string) error {
	known := rules.Names()
	for _, name := range names {
		if contains(known, name) {
			continue
		}
		msg := fmt.Sprintf("unknown rule %q", name)
		if s, ok := SuggestRule(name); ok {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		msg += "; known rules: " + strings.Join(known, ", ")
		return errors.AddContext(validationError(msg), errors.CtxRule, name)
	}
	return nil
}

// SuggestRule returns the rule name with the smallest case-insensitive
// Levenshtein distance to name.
func SuggestRule(name string) (string, bool) {
	best, bestDistance := "", maxSuggestionDistance+1
	lowered := strings.ToLower(name)
	for _, candidate := range rules.Names() {
		d := edlib.LevenshteinDistance(lowered, strings.ToLower(candidate))
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best, best != ""
}

func validateExclude(cfg *Config) error {
	if _, err := discovery.New(cfg.DiscoveryOptions()); err != nil {
		return err
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if !contains(formats, cfg.Output.Format) {
		return validationError(fmt.Sprintf("output.format must be one of: %s, got %q", strings.Join(formats, ", "), cfg.Output.Format))
	}
	return nil
}

func validateStorage(cfg *Config) error {
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		return validationError("cache.path must not be empty when cache is enabled")
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return validationError("history.path must not be empty when history is enabled")
	}
	return nil
}

func validatePerformance(cfg *Config) error {
	if cfg.Performance.Workers < 0 {
		return validationError(fmt.Sprintf("performance.workers must be >= 0, got %d", cfg.Performance.Workers))
	}
	return nil
}

func validationError(msg string) error {
	return errors.New(errors.CodeValidationError, msg)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
