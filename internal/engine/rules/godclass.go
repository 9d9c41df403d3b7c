package rules

import (
	"fmt"
	"strings"

	"greensense/internal/engine/metrics"
	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	GodClassID   = "GCS002"
	GodClassName = "GodClass"
)

type GodClassConfig struct {
	MaxMethods int `toml:"max_methods"`
	MaxCC      int `toml:"max_cc"`
	MaxLOC     int `toml:"max_loc"`
}

func DefaultGodClassConfig() GodClassConfig {
	return GodClassConfig{MaxMethods: 10, MaxCC: 35, MaxLOC: 100}
}

// GodClassRule flags classes with too many methods, too much summed method
// complexity, or too many lines.
type GodClassRule struct {
	info
	cfg GodClassConfig
}

func NewGodClassRule(cfg GodClassConfig) *GodClassRule {
	return &GodClassRule{
		info: info{
			id:          GodClassID,
			name:        GodClassName,
			description: "Detects classes that have too many responsibilities (God Class anti-pattern).",
			severity:    SeverityHigh,
		},
		cfg: cfg,
	}
}

func (r *GodClassRule) Check(_ AnalysisContext, tree *parser.Tree) []Issue {
	var issues []Issue
	parser.WalkKinds(tree.Root, []string{parser.KindClass}, func(class *sitter.Node) {
		methods := classMethods(class)
		complexity := 0
		for _, m := range methods {
			complexity += metrics.CyclomaticComplexity(m)
		}
		start, end := metrics.LineSpan(class)
		lines := metrics.LOC(class)

		var problems []string
		if len(methods) > r.cfg.MaxMethods {
			problems = append(problems, fmt.Sprintf("%d methods (max: %d)", len(methods), r.cfg.MaxMethods))
		}
		if complexity > r.cfg.MaxCC {
			problems = append(problems, fmt.Sprintf("complexity %d (max: %d)", complexity, r.cfg.MaxCC))
		}
		if lines > r.cfg.MaxLOC {
			problems = append(problems, fmt.Sprintf("%d lines (max: %d)", lines, r.cfg.MaxLOC))
		}
		if len(problems) == 0 {
			return
		}
		name := tree.Text(class.ChildByFieldName("name"))
		issues = append(issues, r.issue(start, end, fmt.Sprintf(
			"Class '%s' is a God Class: %s. Consider refactoring by extracting sub-classes.",
			name, strings.Join(problems, ", "))))
	})
	return issues
}

// classMethods returns the functions declared directly in the class body,
// decorated or not.
func classMethods(class *sitter.Node) []*sitter.Node {
	var methods []*sitter.Node
	for _, stmt := range parser.Statements(parser.Body(class)) {
		if def := parser.Unwrap(stmt); def != nil && def.Kind() == parser.KindFunction {
			methods = append(methods, def)
		}
	}
	return methods
}
