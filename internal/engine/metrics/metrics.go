// Package metrics computes structural size and complexity numbers for
// Python syntax subtrees.
package metrics

import (
	"greensense/internal/engine/parser"

	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// LineSpan returns the 1-based inclusive first and last line of node. A nil
// node, or one whose positions cannot be represented, yields (0, 0).
func LineSpan(node *sitter.Node) (int, int) {
	if node == nil {
		return 0, 0
	}
	startPos, endPos := node.StartPosition(), node.EndPosition()
	start, err := safecast.Conv[int](startPos.Row)
	if err != nil {
		return 0, 0
	}
	end, err := safecast.Conv[int](endPos.Row)
	if err != nil {
		return 0, 0
	}
	// A node ending at column 0 stops before that row's first character.
	if endPos.Column == 0 && end > start {
		end--
	}
	return start + 1, end + 1
}

// LOC is the number of lines covered by node.
func LOC(node *sitter.Node) int {
	start, end := LineSpan(node)
	if start == 0 {
		return 0
	}
	return end - start + 1
}

// CyclomaticComplexity returns 1 plus the number of decision points in the
// whole subtree. Nested functions and lambdas are folded into the total.
func CyclomaticComplexity(node *sitter.Node) int {
	if node == nil {
		return 1
	}
	complexity := 1
	parser.Walk(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case parser.KindIf, parser.KindElif, parser.KindWhile, parser.KindFor:
			complexity++
		case parser.KindExcept, parser.KindExceptGroup:
			complexity++
		case parser.KindWith:
			complexity++
		case parser.KindAssert:
			complexity++
		case parser.KindBooleanOperator:
			// Operators are binary, so each node is one extra operand.
			complexity++
		case parser.KindIfClause:
			complexity++
		}
		return true
	})
	return complexity
}

// LoopCount returns the number of for and while loops in the subtree.
func LoopCount(node *sitter.Node) int {
	count := 0
	parser.Walk(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case parser.KindFor, parser.KindWhile:
			count++
		}
		return true
	})
	return count
}
