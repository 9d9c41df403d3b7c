package rules

import (
	"fmt"
	"strings"

	"greensense/internal/engine/metrics"
	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	LongMethodID   = "GCS004"
	LongMethodName = "LongMethod"
)

type LongMethodConfig struct {
	MaxLOC int `toml:"max_loc"`
	MaxCC  int `toml:"max_cc"`
}

func DefaultLongMethodConfig() LongMethodConfig {
	return LongMethodConfig{MaxLOC: 30, MaxCC: 10}
}

// LongMethodRule flags functions, nested and async ones included, that are
// too long or too complex.
type LongMethodRule struct {
	info
	cfg LongMethodConfig
}

func NewLongMethodRule(cfg LongMethodConfig) *LongMethodRule {
	return &LongMethodRule{
		info: info{
			id:          LongMethodID,
			name:        LongMethodName,
			description: "Detects methods that are too long based on LOC and cyclomatic complexity.",
			severity:    SeverityMedium,
		},
		cfg: cfg,
	}
}

func (r *LongMethodRule) Check(_ AnalysisContext, tree *parser.Tree) []Issue {
	var issues []Issue
	parser.WalkKinds(tree.Root, []string{parser.KindFunction}, func(fn *sitter.Node) {
		loc := metrics.LOC(fn)
		cc := metrics.CyclomaticComplexity(fn)

		var problems []string
		if loc > r.cfg.MaxLOC {
			problems = append(problems, fmt.Sprintf("LOC: %d (max: %d)", loc, r.cfg.MaxLOC))
		}
		if cc > r.cfg.MaxCC {
			problems = append(problems, fmt.Sprintf("Cyclomatic Complexity: %d (max: %d)", cc, r.cfg.MaxCC))
		}
		if len(problems) == 0 {
			return
		}
		if loops := metrics.LoopCount(fn); loops > 0 {
			problems = append(problems, fmt.Sprintf("loops: %d", loops))
		}
		start, end := metrics.LineSpan(fn)
		name := tree.Text(fn.ChildByFieldName("name"))
		issues = append(issues, r.issue(start, end, fmt.Sprintf(
			"Method '%s' is too long: %s. Consider refactoring by extracting smaller methods.",
			name, strings.Join(problems, ", "))))
	})
	return issues
}
