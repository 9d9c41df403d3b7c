package rules

import (
	"fmt"
	"strings"

	"greensense/internal/engine/metrics"
	"greensense/internal/engine/normalize"
	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	DuplicatedCodeID   = "GCS003"
	DuplicatedCodeName = "DuplicatedCode"
)

// Blocks compared inside one function span MinStatements up to
// MinStatements+extraWindow statements.
const extraWindow = 4

type DuplicatedCodeConfig struct {
	SimilarityThreshold   float64 `toml:"similarity_threshold"`
	MinStatements         int     `toml:"min_statements"`
	CheckWithinFunctions  bool    `toml:"check_within_functions"`
	CheckBetweenFunctions bool    `toml:"check_between_functions"`
}

func DefaultDuplicatedCodeConfig() DuplicatedCodeConfig {
	return DuplicatedCodeConfig{
		SimilarityThreshold:   0.85,
		MinStatements:         3,
		CheckWithinFunctions:  true,
		CheckBetweenFunctions: true,
	}
}

// FunctionRecord is a function long enough to take part in duplicate search.
type FunctionRecord struct {
	Name       string
	Line       int
	EndLine    int
	Statements int
	Form       normalize.Form
	Body       []*sitter.Node

	hash uint64
}

// CodeBlock is a contiguous run of statements inside one function body.
type CodeBlock struct {
	StartLine  int
	EndLine    int
	Statements int
	Form       normalize.Form

	hash uint64
}

func (b CodeBlock) overlaps(o CodeBlock) bool {
	return !(b.EndLine < o.StartLine || o.EndLine < b.StartLine)
}

// DuplicatedCodeRule reports functions with near-identical bodies and
// repeated statement runs inside a single function.
type DuplicatedCodeRule struct {
	info
	cfg DuplicatedCodeConfig
}

func NewDuplicatedCodeRule(cfg DuplicatedCodeConfig) *DuplicatedCodeRule {
	return &DuplicatedCodeRule{
		info: info{
			id:          DuplicatedCodeID,
			name:        DuplicatedCodeName,
			description: "Detects duplicated or near-duplicated code blocks and functions.",
			severity:    SeverityMedium,
		},
		cfg: cfg,
	}
}

func (r *DuplicatedCodeRule) Check(_ AnalysisContext, tree *parser.Tree) []Issue {
	records := r.functionRecords(tree)

	var issues []Issue
	if r.cfg.CheckBetweenFunctions && len(records) >= 2 {
		issues = append(issues, r.checkBetween(records)...)
	}
	if r.cfg.CheckWithinFunctions {
		issues = append(issues, r.checkWithin(records)...)
	}
	return issues
}

func (r *DuplicatedCodeRule) functionRecords(tree *parser.Tree) []FunctionRecord {
	var records []FunctionRecord
	parser.WalkKinds(tree.Root, []string{parser.KindFunction}, func(fn *sitter.Node) {
		body := parser.Statements(parser.Body(fn))
		if len(body) < r.cfg.MinStatements {
			return
		}
		start, end := metrics.LineSpan(fn)
		form := normalize.NormalizeSequence(tree, body)
		records = append(records, FunctionRecord{
			Name:       tree.Text(fn.ChildByFieldName("name")),
			Line:       start,
			EndLine:    end,
			Statements: len(body),
			Form:       form,
			Body:       body,
			hash:       form.Hash(),
		})
	})
	return records
}

// similarity scores two forms, skipping the matcher when the hashes say
// they are identical.
func similarity(a, b normalize.Form, ha, hb uint64) float64 {
	if ha == hb && normalize.Equal(a, b) {
		return 1.0
	}
	return normalize.Ratio(a.String(), b.String())
}

func (r *DuplicatedCodeRule) checkBetween(records []FunctionRecord) []Issue {
	// Groups hold indexes into records so same-named functions stay distinct.
	var groups [][]int
	member := func(group []int, idx int) bool {
		for _, g := range group {
			if g == idx {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := &records[i], &records[j]
			if similarity(a.Form, b.Form, a.hash, b.hash) < r.cfg.SimilarityThreshold {
				continue
			}
			grouped := false
			for g := range groups {
				switch {
				case member(groups[g], i):
					if !member(groups[g], j) {
						groups[g] = append(groups[g], j)
					}
					grouped = true
				case member(groups[g], j):
					groups[g] = append(groups[g], i)
					grouped = true
				}
				if grouped {
					break
				}
			}
			if !grouped {
				groups = append(groups, []int{i, j})
			}
		}
	}

	reported := make(map[int]bool)
	var issues []Issue
	for _, group := range groups {
		disjoint := true
		for _, idx := range group {
			if reported[idx] {
				disjoint = false
				break
			}
		}
		if !disjoint {
			continue
		}

		var sum float64
		pairs := 0
		names := make([]string, 0, len(group))
		for x, ix := range group {
			rec := records[ix]
			names = append(names, fmt.Sprintf("%s() (line %d, %d statements)", rec.Name, rec.Line, rec.Statements))
			for _, iy := range group[x+1:] {
				other := records[iy]
				sum += similarity(rec.Form, other.Form, rec.hash, other.hash)
				pairs++
			}
		}
		mean := 0.0
		if pairs > 0 {
			mean = sum / float64(pairs)
		}

		first := records[group[0]]
		issues = append(issues, r.issue(first.Line, first.EndLine, fmt.Sprintf(
			"Similar function implementations (similarity: %s): %s. Consider refactoring into a single function.",
			percent(mean), strings.Join(names, ", "))))
		for _, idx := range group {
			reported[idx] = true
		}
	}
	return issues
}

func (r *DuplicatedCodeRule) checkWithin(records []FunctionRecord) []Issue {
	var issues []Issue
	for _, rec := range records {
		if rec.Statements < 2*r.cfg.MinStatements {
			continue
		}
		blocks := codeBlocks(rec, r.cfg.MinStatements)
		if issue, ok := r.firstDuplicate(rec.Name, blocks); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// firstDuplicate scans non-overlapping block pairs in order and returns the
// first one at or above the threshold.
func (r *DuplicatedCodeRule) firstDuplicate(function string, blocks []CodeBlock) (Issue, bool) {
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			a, b := blocks[i], blocks[j]
			if a.overlaps(b) {
				continue
			}
			sim := similarity(a.Form, b.Form, a.hash, b.hash)
			if sim < r.cfg.SimilarityThreshold {
				continue
			}
			return r.issue(a.StartLine, a.EndLine, fmt.Sprintf(
				"Duplicated code block in function '%s' (similarity: %s): lines %d-%d and %d-%d (%d statements). Consider extracting to a separate function.",
				function, percent(sim), a.StartLine, a.EndLine, b.StartLine, b.EndLine, a.Statements)), true
		}
	}
	return Issue{}, false
}

// codeBlocks builds every window of minSize..minSize+extraWindow statements
// that fits in the function body. Windows reuse the per-statement forms of
// the record.
func codeBlocks(rec FunctionRecord, minSize int) []CodeBlock {
	stmts := rec.Body
	if minSize < 1 || len(stmts) < minSize || len(rec.Form.Fields) != len(stmts) {
		return nil
	}
	var blocks []CodeBlock
	for start := 0; start+minSize <= len(stmts); start++ {
		for size := minSize; size <= minSize+extraWindow && start+size <= len(stmts); size++ {
			window := stmts[start : start+size]
			first, _ := metrics.LineSpan(window[0])
			_, last := metrics.LineSpan(window[len(window)-1])
			form := normalize.Form{Kind: normalize.SequenceKind, Fields: rec.Form.Fields[start : start+size]}
			blocks = append(blocks, CodeBlock{
				StartLine:  first,
				EndLine:    last,
				Statements: size,
				Form:       form,
				hash:       form.Hash(),
			})
		}
	}
	return blocks
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
