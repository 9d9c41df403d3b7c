package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Visitor is called once per node. Returning false skips the node's children.
type Visitor func(node *sitter.Node) bool

// Walk visits root and every descendant breadth-first. It uses an explicit
// queue so deeply nested input cannot exhaust the goroutine stack.
func Walk(root *sitter.Node, visit Visitor) {
	if root == nil {
		return
	}
	queue := []*sitter.Node{root}
	for len(queue) > 0 {
		node := queue[0]
		queue[0] = nil
		queue = queue[1:]
		if !visit(node) {
			continue
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child != nil {
				queue = append(queue, child)
			}
		}
	}
}

// WalkKinds visits only nodes whose kind is in kinds.
func WalkKinds(root *sitter.Node, kinds []string, visit func(node *sitter.Node)) {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	Walk(root, func(node *sitter.Node) bool {
		if want[node.Kind()] {
			visit(node)
		}
		return true
	})
}

// WalkPreorder visits root and its descendants in source order, parents
// before children.
func WalkPreorder(root *sitter.Node, visit Visitor) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		stack = stack[:len(stack)-1]
		if !visit(node) {
			continue
		}
		for i := node.ChildCount(); i > 0; i-- {
			if child := node.Child(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
}
