package app

import (
	"bytes"

	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CodeInfo summarises the size of one Python file.
type CodeInfo struct {
	Path      string `json:"path"`
	Lines     int    `json:"lines"`
	Functions int    `json:"functions"`
	Classes   int    `json:"classes"`
}

// ReadCodeInfo parses path and counts its lines, functions and classes.
// Nested and async functions, and methods, count as functions.
func ReadCodeInfo(p *parser.Parser, path string) (CodeInfo, error) {
	if p == nil {
		p = parser.NewParser()
	}
	tree, err := p.ParseFile(path)
	if err != nil {
		return CodeInfo{}, err
	}
	defer tree.Close()

	info := CodeInfo{Path: path, Lines: countLines(tree.Source)}
	parser.WalkKinds(tree.Root, []string{parser.KindFunction, parser.KindClass}, func(n *sitter.Node) {
		if n.Kind() == parser.KindClass {
			info.Classes++
			return
		}
		info.Functions++
	})
	return info, nil
}

// countLines counts lines the way a text editor numbers them: a trailing
// newline does not open a new line.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
