package parser

import (
	"os"
	"time"

	"greensense/internal/core/errors"
	"greensense/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Tree is one parsed Python file. Nodes reachable from Root stay valid until
// Close is called.
type Tree struct {
	Path   string
	Source []byte
	Root   *sitter.Node

	tree *sitter.Tree
}

// Text returns the source text spanned by node.
func (t *Tree) Text(node *sitter.Node) string {
	if t == nil || node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(t.Source)) || start > end {
		return ""
	}
	return string(t.Source[start:end])
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Close()
	t.tree = nil
	t.Root = nil
}

// Parser turns Python source into Trees. It is safe for concurrent use.
type Parser struct {
	pool *parserPool
}

func NewParser() *Parser {
	return &Parser{pool: newParserPool(PythonLanguage())}
}

// Parse parses content. A tree containing syntax errors is rejected the same
// way an unparsable file is.
func (p *Parser) Parse(path string, content []byte) (*Tree, error) {
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(LanguagePython).Observe(time.Since(start).Seconds())
	}()

	sp := p.pool.get()
	if sp == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "python grammar unavailable"), errors.CtxPath, path)
	}
	defer p.pool.put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		observability.ParseFailuresTotal.Inc()
		return nil, errors.AddContext(errors.New(errors.CodeParseFailed, "parse failed"), errors.CtxPath, path)
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		observability.ParseFailuresTotal.Inc()
		return nil, errors.AddContext(errors.New(errors.CodeParseFailed, "syntax error"), errors.CtxPath, path)
	}

	return &Tree{Path: path, Source: content, Root: root, tree: tree}, nil
}

// ParseFile reads and parses path.
func (p *Parser) ParseFile(path string) (*Tree, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read failed"), errors.CtxPath, path)
	}
	return p.Parse(path, content)
}

// Leased reports how many pooled parsers are currently in use.
func (p *Parser) Leased() int {
	return p.pool.inUse()
}
