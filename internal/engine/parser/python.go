package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Python node kinds shared by the metrics and rule packages.
const (
	KindModule             = "module"
	KindFunction           = "function_definition"
	KindClass              = "class_definition"
	KindDecorated          = "decorated_definition"
	KindBlock              = "block"
	KindComment            = "comment"
	KindIdentifier         = "identifier"
	KindExpressionStmt     = "expression_statement"
	KindReturn             = "return_statement"
	KindRaise              = "raise_statement"
	KindBreak              = "break_statement"
	KindContinue           = "continue_statement"
	KindIf                 = "if_statement"
	KindElif               = "elif_clause"
	KindElse               = "else_clause"
	KindFor                = "for_statement"
	KindWhile              = "while_statement"
	KindWith               = "with_statement"
	KindTry                = "try_statement"
	KindExcept             = "except_clause"
	KindExceptGroup        = "except_group_clause"
	KindFinally            = "finally_clause"
	KindAssert             = "assert_statement"
	KindBooleanOperator    = "boolean_operator"
	KindIfClause           = "if_clause"
	KindCall               = "call"
	KindAttribute          = "attribute"
	KindAssignment         = "assignment"
	KindString             = "string"
	KindConcatenatedString = "concatenated_string"
	KindInterpolation      = "interpolation"
)

// Statements returns the statements of a block, skipping comments.
func Statements(block *sitter.Node) []*sitter.Node {
	if block == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, block.NamedChildCount())
	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child == nil || child.Kind() == KindComment {
			continue
		}
		out = append(out, child)
	}
	return out
}

// Unwrap returns the function or class inside a decorated definition, or node
// itself.
func Unwrap(node *sitter.Node) *sitter.Node {
	if node == nil || node.Kind() != KindDecorated {
		return node
	}
	if def := node.ChildByFieldName("definition"); def != nil {
		return def
	}
	return node
}

// IsAsync reports whether a function, for or with statement carries the
// async keyword.
func IsAsync(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == "async" {
			return true
		}
	}
	return false
}

// Body returns the statement block owned by a compound statement or clause.
// Clauses without a body field (except, finally) carry the block as a plain
// child.
func Body(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for _, field := range []string{"body", "consequence"} {
		if b := node.ChildByFieldName(field); b != nil {
			return b
		}
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil && child.Kind() == KindBlock {
			return child
		}
	}
	return nil
}

// ChildrenOfKind returns the direct children of node with one of kinds.
func ChildrenOfKind(node *sitter.Node, kinds ...string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				out = append(out, child)
				break
			}
		}
	}
	return out
}

// SameNode reports whether a and b are the same node of one tree.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Id() == b.Id()
}

// IsDocstring reports whether stmt is a plain string literal statement.
func IsDocstring(stmt *sitter.Node) bool {
	if stmt == nil || stmt.Kind() != KindExpressionStmt || stmt.NamedChildCount() != 1 {
		return false
	}
	expr := stmt.NamedChild(0)
	if expr == nil {
		return false
	}
	switch expr.Kind() {
	case KindConcatenatedString:
		for i := uint(0); i < expr.NamedChildCount(); i++ {
			if part := expr.NamedChild(i); part != nil && part.Kind() == KindString && hasInterpolation(part) {
				return false
			}
		}
		return true
	case KindString:
		return !hasInterpolation(expr)
	}
	return false
}

func hasInterpolation(str *sitter.Node) bool {
	for i := uint(0); i < str.NamedChildCount(); i++ {
		if child := str.NamedChild(i); child != nil && child.Kind() == KindInterpolation {
			return true
		}
	}
	return false
}
