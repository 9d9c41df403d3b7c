package rules

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"greensense/internal/engine/discovery"
	"greensense/internal/engine/metrics"
	"greensense/internal/engine/parser"
	"greensense/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

const (
	DeadCodeID   = "GCS005"
	DeadCodeName = "DeadCode"
)

type DeadCodeConfig struct {
	// Workers bounds parallel parsing in project mode; 0 means GOMAXPROCS.
	Workers int
}

// DeadCodeRule reports unused definitions and statements that follow a
// terminator in the same block.
type DeadCodeRule struct {
	info
	cfg    DeadCodeConfig
	walker *discovery.Walker
	parser *parser.Parser
}

func NewDeadCodeRule(cfg DeadCodeConfig, walker *discovery.Walker, p *parser.Parser) *DeadCodeRule {
	if walker == nil {
		walker = discovery.Default()
	}
	if p == nil {
		p = parser.NewParser()
	}
	return &DeadCodeRule{
		info: info{
			id:          DeadCodeID,
			name:        DeadCodeName,
			description: "Detects unreachable code and unused definitions.",
			severity:    SeverityMedium,
		},
		cfg:    cfg,
		walker: walker,
		parser: p,
	}
}

// Check judges one file on its own: a definition is unused when the file
// neither reads nor imports its name.
func (r *DeadCodeRule) Check(_ AnalysisContext, tree *parser.Tree) []Issue {
	syms := CollectSymbols(tree)
	unused := ResolveUnused(syms.Definitions, func(name string) bool {
		return syms.Imports.Has(name) || syms.Usages.Has(name)
	})

	issues := make([]Issue, 0, len(unused))
	for _, d := range unused {
		issues = append(issues, r.unusedIssue(d))
	}
	return append(issues, r.unreachable(tree)...)
}

// CheckProject indexes every Python file under actx.ProjectRoot and reports
// definitions whose name is read or imported nowhere in the project,
// followed by unreachable statements of every file.
func (r *DeadCodeRule) CheckProject(ctx context.Context, actx AnalysisContext) ([]Issue, error) {
	files, err := r.walker.Files(ctx, actx.ProjectRoot)
	if err != nil {
		return nil, err
	}
	index, err := r.BuildProjectIndex(ctx, files)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, file := range index.Files {
		for _, d := range ResolveUnused(index.Definitions[file], index.UsedAnywhere) {
			issue := r.unusedIssue(d)
			issue.File = file
			issues = append(issues, issue)
		}
	}
	for _, file := range index.Files {
		issues = append(issues, index.Unreachable[file]...)
	}
	return issues, nil
}

func (r *DeadCodeRule) unusedIssue(d Definition) Issue {
	return r.issue(d.Line, d.EndLine, fmt.Sprintf("Unused %s '%s' is never referenced. Suggest removing it.", d.Kind, d.Name))
}

// ResolveUnused returns the definitions that are not underscore-private and
// for which used reports false, in input order.
func ResolveUnused(defs []Definition, used func(name string) bool) []Definition {
	var out []Definition
	for _, d := range defs {
		if strings.HasPrefix(d.Name, "_") || used(d.Name) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ProjectIndex holds the per-file symbol sets of one project run. Names are
// resolved against the whole project as a single namespace, so a helper is
// "used" whenever any file reads or imports the same name.
type ProjectIndex struct {
	Files       []string
	Definitions map[string][]Definition
	Usages      map[string]SymbolSet
	Imports     map[string]SymbolSet
	Unreachable map[string][]Issue
}

func newProjectIndex(capacity int) *ProjectIndex {
	return &ProjectIndex{
		Files:       make([]string, 0, capacity),
		Definitions: make(map[string][]Definition, capacity),
		Usages:      make(map[string]SymbolSet, capacity),
		Imports:     make(map[string]SymbolSet, capacity),
		Unreachable: make(map[string][]Issue, capacity),
	}
}

// UsedAnywhere reports whether any indexed file reads or imports name.
func (p *ProjectIndex) UsedAnywhere(name string) bool {
	for _, set := range p.Usages {
		if set.Has(name) {
			return true
		}
	}
	for _, set := range p.Imports {
		if set.Has(name) {
			return true
		}
	}
	return false
}

type fileSlot struct {
	ok          bool
	symbols     FileSymbols
	unreachable []Issue
}

// BuildProjectIndex parses files in parallel, one result slot per file, and
// merges the slots once every file is done. Files that cannot be read or
// parsed are left out. Only cancellation of ctx fails the build.
func (r *DeadCodeRule) BuildProjectIndex(ctx context.Context, files []string) (*ProjectIndex, error) {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("project_index").Observe(time.Since(start).Seconds())
	}()

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]fileSlot, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := r.parser.ParseFile(file)
			if err != nil {
				slog.Debug("skipping file", "path", file, "error", err)
				return nil
			}
			defer tree.Close()

			unreachable := r.unreachable(tree)
			for j := range unreachable {
				unreachable[j].File = file
			}
			slots[i] = fileSlot{ok: true, symbols: CollectSymbols(tree), unreachable: unreachable}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := newProjectIndex(len(files))
	for i, file := range files {
		slot := slots[i]
		if !slot.ok {
			continue
		}
		index.Files = append(index.Files, file)
		index.Definitions[file] = slot.symbols.Definitions
		index.Usages[file] = slot.symbols.Usages
		index.Imports[file] = slot.symbols.Imports
		if len(slot.unreachable) > 0 {
			index.Unreachable[file] = slot.unreachable
		}
	}
	return index, nil
}

// Constructs whose statement lists are checked for unreachable code.
var reachabilityKinds = []string{
	parser.KindFunction,
	parser.KindFor,
	parser.KindWhile,
	parser.KindIf,
	parser.KindWith,
	parser.KindTry,
}

func (r *DeadCodeRule) unreachable(tree *parser.Tree) []Issue {
	var issues []Issue
	parser.WalkKinds(tree.Root, reachabilityKinds, func(n *sitter.Node) {
		for _, block := range statementLists(n) {
			if issue, ok := r.firstUnreachable(tree, block); ok {
				issues = append(issues, issue)
			}
		}
	})
	return issues
}

// statementLists returns every block owned by a compound statement: its
// body, each elif and else branch, each except handler and finally.
func statementLists(n *sitter.Node) []*sitter.Node {
	var blocks []*sitter.Node
	if body := parser.Body(n); body != nil {
		blocks = append(blocks, body)
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case parser.KindElif, parser.KindElse, parser.KindExcept, parser.KindExceptGroup, parser.KindFinally:
			if body := parser.Body(c); body != nil {
				blocks = append(blocks, body)
			}
		}
	}
	return blocks
}

func (r *DeadCodeRule) firstUnreachable(tree *parser.Tree, block *sitter.Node) (Issue, bool) {
	terminatorLine := 0
	for i, stmt := range parser.Statements(block) {
		if isTerminator(tree, stmt) {
			terminatorLine, _ = metrics.LineSpan(stmt)
			continue
		}
		if terminatorLine == 0 || (i == 0 && parser.IsDocstring(stmt)) {
			continue
		}
		start, end := metrics.LineSpan(stmt)
		return r.issue(start, end, fmt.Sprintf("Unreachable code after statement at line %d. Consider removing it.", terminatorLine)), true
	}
	return Issue{}, false
}

// isTerminator reports whether stmt ends control flow of its block: return,
// raise, break, continue, or a bare call to exit(), quit() or any x.exit().
func isTerminator(tree *parser.Tree, stmt *sitter.Node) bool {
	switch stmt.Kind() {
	case parser.KindReturn, parser.KindRaise, parser.KindBreak, parser.KindContinue:
		return true
	case parser.KindExpressionStmt:
	default:
		return false
	}
	if stmt.NamedChildCount() != 1 {
		return false
	}
	call := stmt.NamedChild(0)
	if call == nil || call.Kind() != parser.KindCall {
		return false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	switch fn.Kind() {
	case parser.KindIdentifier:
		name := tree.Text(fn)
		return name == "exit" || name == "quit"
	case parser.KindAttribute:
		return tree.Text(fn.ChildByFieldName("attribute")) == "exit"
	}
	return false
}
