package rules

import (
	"fmt"
	"sort"

	"greensense/internal/core/errors"
	"greensense/internal/engine/discovery"
	"greensense/internal/engine/parser"
)

// Options selects and tunes the rules of a run.
type Options struct {
	GodClass       GodClassConfig
	LongMethod     LongMethodConfig
	DuplicatedCode DuplicatedCodeConfig
	DeadCode       DeadCodeConfig
	// Disabled lists rule names to leave out.
	Disabled []string
}

func DefaultOptions() Options {
	return Options{
		GodClass:       DefaultGodClassConfig(),
		LongMethod:     DefaultLongMethodConfig(),
		DuplicatedCode: DefaultDuplicatedCodeConfig(),
	}
}

// Names returns every rule name in lexical order.
func Names() []string {
	names := []string{GodClassName, DuplicatedCodeName, LongMethodName, DeadCodeName, MutableDefaultName}
	sort.Strings(names)
	return names
}

// Build constructs the enabled rules in a fixed order. Unknown names in
// opts.Disabled are rejected.
func Build(opts Options, walker *discovery.Walker, p *parser.Parser) ([]Rule, error) {
	known := make(map[string]bool)
	for _, n := range Names() {
		known[n] = true
	}
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, n := range opts.Disabled {
		if !known[n] {
			return nil, errors.AddContext(
				errors.New(errors.CodeValidationError, fmt.Sprintf("unknown rule %q", n)),
				errors.CtxRule, n)
		}
		disabled[n] = true
	}

	all := []Rule{
		NewGodClassRule(opts.GodClass),
		NewDuplicatedCodeRule(opts.DuplicatedCode),
		NewLongMethodRule(opts.LongMethod),
		NewDeadCodeRule(opts.DeadCode, walker, p),
		NewMutableDefaultArgumentsRule(),
	}
	enabled := make([]Rule, 0, len(all))
	for _, r := range all {
		if !disabled[r.Name()] {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}
