// Package rules implements the code smell detectors run over parsed Python
// files.
package rules

import (
	"context"

	"greensense/internal/engine/parser"
)

type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
)

// Mode says whether a run looks at one file or a whole project.
type Mode int

const (
	ModeSingleFile Mode = iota
	ModeProject
)

func (m Mode) String() string {
	if m == ModeProject {
		return "project"
	}
	return "single-file"
}

// AnalysisContext is passed explicitly to every rule invocation; rules keep
// no per-run state of their own.
type AnalysisContext struct {
	ProjectRoot string
	Mode        Mode
	// File is the path of the tree being checked, empty for project checks.
	File string
}

// Issue is one reported smell. Lines are 1-based and inclusive.
type Issue struct {
	RuleID   string   `json:"rule_id" msgpack:"rule_id"`
	Rule     string   `json:"rule" msgpack:"rule"`
	File     string   `json:"file,omitempty" msgpack:"file,omitempty"`
	Line     int      `json:"lineno" msgpack:"lineno"`
	EndLine  int      `json:"end_lineno" msgpack:"end_lineno"`
	Message  string   `json:"message" msgpack:"message"`
	Severity Severity `json:"severity,omitempty" msgpack:"severity,omitempty"`
}

// Span is the number of lines the issue covers.
func (i Issue) Span() int {
	if i.Line <= 0 {
		return 0
	}
	return i.EndLine - i.Line + 1
}

// Rule checks a single parsed file. Check must not fail on a well-formed
// tree; issues leave File empty for the caller to fill in.
type Rule interface {
	ID() string
	Name() string
	Description() string
	Severity() Severity
	Check(actx AnalysisContext, tree *parser.Tree) []Issue
}

// ProjectRule is implemented by rules that can also judge a whole project
// at once. Issues returned by CheckProject carry File.
type ProjectRule interface {
	Rule
	CheckProject(ctx context.Context, actx AnalysisContext) ([]Issue, error)
}

// info holds the static identity every rule reports.
type info struct {
	id          string
	name        string
	description string
	severity    Severity
}

func (i info) ID() string          { return i.id }
func (i info) Name() string        { return i.name }
func (i info) Description() string { return i.description }
func (i info) Severity() Severity  { return i.severity }

func (i info) issue(line, endLine int, message string) Issue {
	if endLine < line {
		endLine = line
	}
	return Issue{
		RuleID:   i.id,
		Rule:     i.name,
		Line:     line,
		EndLine:  endLine,
		Message:  message,
		Severity: i.severity,
	}
}
