package rules

import (
	"strings"

	"greensense/internal/engine/metrics"
	"greensense/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type DefinitionKind string

const (
	DefinitionFunction DefinitionKind = "function"
	DefinitionClass    DefinitionKind = "class"
	DefinitionVariable DefinitionKind = "variable"
)

// Definition is one declared name of a file.
type Definition struct {
	Name    string         `msgpack:"name"`
	Kind    DefinitionKind `msgpack:"kind"`
	Line    int            `msgpack:"line"`
	EndLine int            `msgpack:"end_line"`
}

// SymbolSet is a set of names.
type SymbolSet map[string]struct{}

func (s SymbolSet) Add(name string) {
	s[name] = struct{}{}
}

func (s SymbolSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// FileSymbols is everything one file declares, reads and imports.
type FileSymbols struct {
	Definitions []Definition
	Usages      SymbolSet
	Imports     SymbolSet
}

// CollectSymbols gathers definitions, usages and imports over the whole
// tree. A name defined twice keeps the list position of its first
// definition and the span and kind of the last one in source order.
func CollectSymbols(tree *parser.Tree) FileSymbols {
	return FileSymbols{
		Definitions: collectDefinitions(tree),
		Usages:      collectUsages(tree),
		Imports:     collectImports(tree),
	}
}

func collectDefinitions(tree *parser.Tree) []Definition {
	var defs []Definition
	index := make(map[string]int)
	record := func(d Definition) {
		if i, ok := index[d.Name]; ok {
			defs[i] = d
			return
		}
		index[d.Name] = len(defs)
		defs = append(defs, d)
	}

	parser.WalkPreorder(tree.Root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case parser.KindFunction, parser.KindClass:
			kind := DefinitionFunction
			if n.Kind() == parser.KindClass {
				kind = DefinitionClass
			}
			start, end := metrics.LineSpan(n)
			record(Definition{Name: tree.Text(n.ChildByFieldName("name")), Kind: kind, Line: start, EndLine: end})
		case parser.KindAssignment:
			// Annotated assignments declare a type, not a plain binding.
			if n.ChildByFieldName("type") != nil {
				break
			}
			left := n.ChildByFieldName("left")
			if left == nil || left.Kind() != parser.KindIdentifier {
				break
			}
			start, end := metrics.LineSpan(left)
			record(Definition{Name: tree.Text(left), Kind: DefinitionVariable, Line: start, EndLine: end})
		}
		return true
	})
	return defs
}

// Kinds whose children all sit in a binding position.
var bindingContainers = map[string]bool{
	"pattern_list":             true,
	"tuple_pattern":            true,
	"list_pattern":             true,
	"list_splat_pattern":       true,
	"dictionary_splat_pattern": true,
	"as_pattern_target":        true,
	"parameters":               true,
	"lambda_parameters":        true,
	"global_statement":         true,
	"nonlocal_statement":       true,
	"delete_statement":         true,
}

// Kinds that pass their own position on to their children.
var transparentContainers = map[string]bool{
	"expression_list":          true,
	"parenthesized_expression": true,
}

// Fields that bind or declare a name rather than read it.
var bindingFields = map[string]map[string]bool{
	parser.KindFunction:       {"name": true},
	parser.KindClass:          {"name": true},
	parser.KindAssignment:     {"left": true},
	"augmented_assignment":    {"left": true},
	parser.KindFor:            {"left": true},
	"for_in_clause":           {"left": true},
	"named_expression":        {"name": true},
	"keyword_argument":        {"name": true},
	"default_parameter":       {"name": true},
	"typed_default_parameter": {"name": true},
	"as_pattern":              {"alias": true},
	parser.KindExcept:         {"alias": true},
	parser.KindExceptGroup:    {"alias": true},
	// Member names are recorded as attribute usages separately.
	parser.KindAttribute: {"attribute": true},
}

// Subtrees that never contain reads.
var skipUsageKinds = map[string]bool{
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
	parser.KindComment:        true,
}

type usageFrame struct {
	node    *sitter.Node
	binding bool
}

// collectUsages gathers every identifier read in load position plus every
// attribute member name. Call targets fall out of both.
func collectUsages(tree *parser.Tree) SymbolSet {
	used := make(SymbolSet)
	queue := []usageFrame{{node: tree.Root}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		n := f.node
		kind := n.Kind()

		if skipUsageKinds[kind] {
			continue
		}
		if kind == parser.KindIdentifier {
			if !f.binding {
				used.Add(tree.Text(n))
			}
			continue
		}
		if kind == parser.KindAttribute {
			if attr := n.ChildByFieldName("attribute"); attr != nil {
				used.Add(tree.Text(attr))
			}
		}
		queue = appendChildFrames(queue, f)
	}
	return used
}

// appendChildFrames queues the named children of f with their binding
// position worked out from the parent kind and field.
func appendChildFrames(queue []usageFrame, f usageFrame) []usageFrame {
	n := f.node
	kind := n.Kind()
	fields := bindingFields[kind]
	afterAs := false

	cursor := n.Walk()
	defer cursor.Close()
	if !cursor.GotoFirstChild() {
		return queue
	}
	for {
		c := cursor.Node()
		if c != nil {
			if !c.IsNamed() {
				if c.Kind() == "as" {
					afterAs = true
				}
			} else {
				field := cursor.FieldName()
				binding := false
				switch {
				case bindingContainers[kind]:
					binding = true
				case transparentContainers[kind]:
					binding = f.binding
				case fields[field]:
					binding = true
				case kind == "typed_parameter" && field == "":
					binding = true
				case (kind == parser.KindExcept || kind == parser.KindExceptGroup) && afterAs:
					binding = c.Kind() == parser.KindIdentifier
				}
				// Default values and annotations are reads even inside
				// parameter lists.
				if binding && (field == "value" || field == "type") {
					binding = false
				}
				queue = append(queue, usageFrame{node: c, binding: binding})
			}
		}
		if !cursor.GotoNextSibling() {
			break
		}
	}
	return queue
}

// collectImports returns the local names bound by import statements, the
// alias when one is given.
func collectImports(tree *parser.Tree) SymbolSet {
	imports := make(SymbolSet)
	kinds := []string{"import_statement", "import_from_statement", "future_import_statement"}
	parser.WalkKinds(tree.Root, kinds, func(stmt *sitter.Node) {
		cursor := stmt.Walk()
		defer cursor.Close()
		if !cursor.GotoFirstChild() {
			return
		}
		for {
			c := cursor.Node()
			if c != nil && cursor.FieldName() == "name" {
				switch c.Kind() {
				case "aliased_import":
					if alias := c.ChildByFieldName("alias"); alias != nil {
						imports.Add(tree.Text(alias))
					} else {
						imports.Add(dottedName(tree, c.ChildByFieldName("name")))
					}
				default:
					imports.Add(dottedName(tree, c))
				}
			}
			if c != nil && c.Kind() == "wildcard_import" {
				imports.Add("*")
			}
			if !cursor.GotoNextSibling() {
				break
			}
		}
	})
	return imports
}

func dottedName(tree *parser.Tree, n *sitter.Node) string {
	return strings.Join(strings.Fields(tree.Text(n)), "")
}
