// Package normalize turns Python syntax subtrees into renaming-invariant
// canonical forms and scores how similar two forms are.
package normalize

import (
	"io"
	"strings"

	"greensense/internal/engine/parser"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Placeholders for collapsed leaves.
const (
	Var           = "VAR"
	ConstInt      = "CONST_int"
	ConstFloat    = "CONST_float"
	ConstComplex  = "CONST_complex"
	ConstStr      = "CONST_str"
	ConstBytes    = "CONST_bytes"
	ConstBool     = "CONST_bool"
	ConstNone     = "CONST_NoneType"
	ConstEllipsis = "CONST_ellipsis"

	// SequenceKind tags the form of a statement list.
	SequenceKind = "seq"
	// NameKind tags a member or keyword name kept verbatim.
	NameKind = "name"
)

// Form is the canonical value of a subtree. Leaves carry only Kind (and Text
// for verbatim names); inner nodes carry their kind and ordered fields.
type Form struct {
	Kind   string
	Text   string
	Leaf   bool
	Fields []Field
}

// Field is one child of an inner Form. Name is empty for children the
// grammar does not label.
type Field struct {
	Name  string
	Value Form
}

// Children of strings that carry no structure once the literal collapses.
var stringParts = map[string]bool{
	"string_start":    true,
	"string_content":  true,
	"string_end":      true,
	"escape_sequence": true,
}

// Fields holding names that are not variables: attribute members and
// keyword argument names.
var verbatimFields = map[string]map[string]bool{
	parser.KindAttribute: {"attribute": true},
	"keyword_argument":   {"name": true},
}

type frame struct {
	node *sitter.Node
	dst  *Form
}

// Normalize builds the Form of node. Identifiers collapse to VAR and
// literals to a CONST_<type> tag; positions and load/store context never
// enter the result.
func Normalize(tree *parser.Tree, node *sitter.Node) Form {
	var root Form
	if node == nil {
		return Form{Kind: ConstNone, Leaf: true}
	}
	stack := []frame{{node: node, dst: &root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = expand(tree, top, stack)
	}
	return root
}

// NormalizeSequence builds one Form for a list of statements.
func NormalizeSequence(tree *parser.Tree, stmts []*sitter.Node) Form {
	seq := Form{Kind: SequenceKind, Fields: make([]Field, len(stmts))}
	for i, stmt := range stmts {
		seq.Fields[i].Value = Normalize(tree, stmt)
	}
	return seq
}

// expand fills f.dst from f.node and pushes the children still to build.
func expand(tree *parser.Tree, f frame, stack []frame) []frame {
	node := f.node
	for node.Kind() == "parenthesized_expression" && node.NamedChildCount() == 1 {
		inner := node.NamedChild(0)
		if inner == nil || inner.Kind() == parser.KindComment {
			break
		}
		node = inner
	}

	if leaf, ok := literal(tree, node); ok {
		*f.dst = Form{Kind: leaf, Leaf: true}
		return stack
	}

	kind := node.Kind()
	if parser.IsAsync(node) {
		kind = "async_" + kind
	}
	interpolated := kind == parser.KindString || kind == parser.KindConcatenatedString

	type child struct {
		field string
		node  *sitter.Node
	}
	var children []child
	cursor := node.Walk()
	if cursor.GotoFirstChild() {
		for {
			c := cursor.Node()
			name := cursor.FieldName()
			if c != nil && keep(c, name, interpolated) {
				children = append(children, child{field: name, node: c})
			}
			if !cursor.GotoNextSibling() {
				break
			}
		}
	}
	cursor.Close()

	*f.dst = Form{Kind: kind, Fields: make([]Field, len(children))}
	verbatim := verbatimFields[node.Kind()]
	for i, c := range children {
		slot := &f.dst.Fields[i]
		slot.Name = c.field
		switch {
		case c.node.IsNamed() && verbatim[c.field]:
			slot.Value = Form{Kind: NameKind, Text: tree.Text(c.node), Leaf: true}
		case !c.node.IsNamed():
			slot.Value = Form{Kind: c.node.Kind(), Leaf: true}
		default:
			stack = append(stack, frame{node: c.node, dst: &slot.Value})
		}
	}
	return stack
}

// keep decides whether a child takes part in the parent's form. Named
// children do, except comments and the raw pieces of a string. Anonymous
// tokens only count when the grammar labels them, which keeps operators.
func keep(c *sitter.Node, field string, inString bool) bool {
	if c.Kind() == parser.KindComment {
		return false
	}
	if !c.IsNamed() {
		return field != ""
	}
	if inString && stringParts[c.Kind()] {
		return false
	}
	return true
}

// literal returns the placeholder for identifier and constant nodes.
func literal(tree *parser.Tree, node *sitter.Node) (string, bool) {
	switch node.Kind() {
	case parser.KindIdentifier:
		return Var, true
	case "integer":
		if isImaginary(tree.Text(node)) {
			return ConstComplex, true
		}
		return ConstInt, true
	case "float":
		if isImaginary(tree.Text(node)) {
			return ConstComplex, true
		}
		return ConstFloat, true
	case "true", "false":
		return ConstBool, true
	case "none":
		return ConstNone, true
	case "ellipsis":
		return ConstEllipsis, true
	case parser.KindString:
		if hasInterpolation(node) {
			return "", false
		}
		if isBytes(tree, node) {
			return ConstBytes, true
		}
		return ConstStr, true
	case parser.KindConcatenatedString:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if part := node.NamedChild(i); part != nil && hasInterpolation(part) {
				return "", false
			}
		}
		if first := node.NamedChild(0); first != nil && isBytes(tree, first) {
			return ConstBytes, true
		}
		return ConstStr, true
	}
	return "", false
}

func isImaginary(text string) bool {
	return strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J")
}

func isBytes(tree *parser.Tree, str *sitter.Node) bool {
	for i := uint(0); i < str.ChildCount(); i++ {
		c := str.Child(i)
		if c != nil && c.Kind() == "string_start" {
			return strings.ContainsAny(tree.Text(c), "bB")
		}
	}
	return false
}

func hasInterpolation(str *sitter.Node) bool {
	for i := uint(0); i < str.NamedChildCount(); i++ {
		if c := str.NamedChild(i); c != nil && c.Kind() == parser.KindInterpolation {
			return true
		}
	}
	return false
}

// String serialises f. Equal forms always produce equal strings.
func (f Form) String() string {
	var b strings.Builder
	f.writeTo(&b)
	return b.String()
}

// Hash is the xxhash of the serialised form.
func (f Form) Hash() uint64 {
	d := xxhash.New()
	f.writeTo(d)
	return d.Sum64()
}

type writeOp struct {
	text string
	form *Form
}

func (f *Form) writeTo(w io.StringWriter) {
	stack := []writeOp{{form: f}}
	for len(stack) > 0 {
		op := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if op.form == nil {
			_, _ = w.WriteString(op.text)
			continue
		}
		g := op.form
		if g.Leaf {
			_, _ = w.WriteString(g.Kind)
			if g.Text != "" {
				_, _ = w.WriteString(":" + g.Text)
			}
			continue
		}
		_, _ = w.WriteString("(" + g.Kind)
		stack = append(stack, writeOp{text: ")"})
		for i := len(g.Fields) - 1; i >= 0; i-- {
			field := &g.Fields[i]
			stack = append(stack, writeOp{form: &field.Value})
			if field.Name != "" {
				stack = append(stack, writeOp{text: " " + field.Name + "="})
			} else {
				stack = append(stack, writeOp{text: " "})
			}
		}
	}
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Form) bool {
	type pair struct{ x, y *Form }
	stack := []pair{{&a, &b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.x.Kind != p.y.Kind || p.x.Text != p.y.Text || p.x.Leaf != p.y.Leaf || len(p.x.Fields) != len(p.y.Fields) {
			return false
		}
		for i := range p.x.Fields {
			if p.x.Fields[i].Name != p.y.Fields[i].Name {
				return false
			}
			stack = append(stack, pair{&p.x.Fields[i].Value, &p.y.Fields[i].Value})
		}
	}
	return true
}
