// Package report renders analysis results as console text, JSON, SARIF or
// TSV.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"greensense/internal/engine/rules"
	"greensense/internal/ui/report/formats"
)

// Report is everything a renderer needs about one run.
type Report struct {
	Root     string
	Mode     rules.Mode
	Files    int
	Issues   []rules.Issue
	Rules    []formats.RuleInfo
	Duration time.Duration
	// Trend is an optional one-line comparison with the previous run.
	Trend string
}

// RuleInfos describes rs for renderers.
func RuleInfos(rs []rules.Rule) []formats.RuleInfo {
	out := make([]formats.RuleInfo, 0, len(rs))
	for _, r := range rs {
		out = append(out, formats.RuleInfo{
			ID:          r.ID(),
			Name:        r.Name(),
			Description: r.Description(),
			Severity:    r.Severity(),
		})
	}
	return out
}

// SmellLines sums the lines covered by issues. A mutable default argument
// counts as one line whatever its span.
func SmellLines(issues []rules.Issue) int {
	total := 0
	for _, issue := range issues {
		if issue.Rule == rules.MutableDefaultName {
			total++
			continue
		}
		total += issue.Span()
	}
	return total
}

// CountByRule returns the number of issues per rule name.
func CountByRule(issues []rules.Issue) map[string]int {
	counts := make(map[string]int)
	for _, issue := range issues {
		counts[issue.Rule]++
	}
	return counts
}

type fileGroup struct {
	file   string
	issues []rules.Issue
}

// groupByFile orders files by issue count, most first, then by path. Issues
// inside a file are ordered by rule name, then line.
func groupByFile(issues []rules.Issue) []fileGroup {
	index := make(map[string]int)
	var groups []fileGroup
	for _, issue := range issues {
		i, ok := index[issue.File]
		if !ok {
			i = len(groups)
			index[issue.File] = i
			groups = append(groups, fileGroup{file: issue.File})
		}
		groups[i].issues = append(groups[i].issues, issue)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].issues) != len(groups[j].issues) {
			return len(groups[i].issues) > len(groups[j].issues)
		}
		return groups[i].file < groups[j].file
	})
	for _, g := range groups {
		sort.SliceStable(g.issues, func(i, j int) bool {
			if g.issues[i].Rule != g.issues[j].Rule {
				return g.issues[i].Rule < g.issues[j].Rule
			}
			return g.issues[i].Line < g.issues[j].Line
		})
	}
	return groups
}

type ruleCount struct {
	rule  string
	count int
}

// sortedCounts orders rules by issue count, most first, then by name.
func sortedCounts(counts map[string]int) []ruleCount {
	out := make([]ruleCount, 0, len(counts))
	for rule, n := range counts {
		out = append(out, ruleCount{rule: rule, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].rule < out[j].rule
	})
	return out
}

// Write renders r to w in format: console, json, sarif or tsv.
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case "", "console":
		_, err := io.WriteString(w, RenderConsole(r))
		return err
	case "json":
		data, err := RenderJSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "sarif":
		data, err := formats.GenerateSARIF(r.Root, r.Rules, r.Issues)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "tsv":
		_, err := io.WriteString(w, formats.GenerateTSV(r.Root, r.Issues))
		return err
	}
	return fmt.Errorf("unknown report format %q", format)
}

type jsonSummary struct {
	Total      int            `json:"total_issues"`
	SmellLines int            `json:"smell_lines"`
	ByRule     map[string]int `json:"by_rule"`
}

type jsonReport struct {
	Root       string        `json:"root"`
	Mode       string        `json:"mode"`
	Files      int           `json:"files"`
	DurationMS int64         `json:"duration_ms"`
	Issues     []rules.Issue `json:"issues"`
	Summary    jsonSummary   `json:"summary"`
	Trend      string        `json:"trend,omitempty"`
}

// RenderJSON encodes r with the issue wire names rule, lineno, end_lineno
// and message.
func RenderJSON(r Report) ([]byte, error) {
	issues := r.Issues
	if issues == nil {
		issues = []rules.Issue{}
	}
	return json.MarshalIndent(jsonReport{
		Root:       r.Root,
		Mode:       r.Mode.String(),
		Files:      r.Files,
		DurationMS: r.Duration.Milliseconds(),
		Issues:     issues,
		Summary: jsonSummary{
			Total:      len(r.Issues),
			SmellLines: SmellLines(r.Issues),
			ByRule:     CountByRule(r.Issues),
		},
		Trend: r.Trend,
	}, "", "  ")
}
