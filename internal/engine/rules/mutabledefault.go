package rules

import (
	"fmt"

	"greensense/internal/engine/metrics"
	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	MutableDefaultID   = "GCS006"
	MutableDefaultName = "MutableDefaultArguments"
)

var mutableLiterals = map[string]bool{
	"list":       true,
	"dictionary": true,
	"set":        true,
}

// MutableDefaultArgumentsRule flags functions whose positional parameters
// default to a list, dict or set literal. The default is built once and
// shared by every call.
type MutableDefaultArgumentsRule struct {
	info
}

func NewMutableDefaultArgumentsRule() *MutableDefaultArgumentsRule {
	return &MutableDefaultArgumentsRule{info: info{
		id:          MutableDefaultID,
		name:        MutableDefaultName,
		description: "Detects functions that use mutable default arguments.",
		severity:    SeverityMedium,
	}}
}

func (r *MutableDefaultArgumentsRule) Check(_ AnalysisContext, tree *parser.Tree) []Issue {
	var issues []Issue
	parser.WalkKinds(tree.Root, []string{parser.KindFunction}, func(fn *sitter.Node) {
		if !hasMutableDefault(fn) {
			return
		}
		start, end := metrics.LineSpan(fn)
		name := tree.Text(fn.ChildByFieldName("name"))
		issues = append(issues, r.issue(start, end, fmt.Sprintf(
			"Function '%s' has a mutable default argument. Consider using None and initializing inside the function.",
			name)))
	})
	return issues
}

// hasMutableDefault inspects the defaults of parameters that precede any
// star marker; keyword-only defaults are not positional.
func hasMutableDefault(fn *sitter.Node) bool {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return false
		case "typed_parameter":
			if first := p.NamedChild(0); first != nil && first.Kind() != parser.KindIdentifier {
				// *args: T or **kwargs: T
				return false
			}
		case "default_parameter", "typed_default_parameter":
			if v := p.ChildByFieldName("value"); v != nil && mutableLiterals[v.Kind()] {
				return true
			}
		}
	}
	return false
}
