package normalize

import (
	"strings"
	"testing"

	"greensense/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func parse(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := parser.NewParser().Parse("test.py", []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

// functions returns every function definition of tree in source order of
// discovery.
func functions(tree *parser.Tree) []*sitter.Node {
	var out []*sitter.Node
	parser.WalkKinds(tree.Root, []string{parser.KindFunction}, func(n *sitter.Node) {
		out = append(out, n)
	})
	return out
}

func bodyForm(tree *parser.Tree, fn *sitter.Node) Form {
	return NormalizeSequence(tree, parser.Statements(parser.Body(fn)))
}

func TestNormalize_Deterministic(t *testing.T) {
	tree := parse(t, "def f(a, b=[1, 'x']):\n    # note\n    for i in range(a):\n        b.append(i ** 2)\n    return {k: v for k, v in b}\n")
	fn := functions(tree)[0]

	first := Normalize(tree, fn)
	second := Normalize(tree, fn)
	assert.True(t, Equal(first, second))
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, first.Hash(), second.Hash())
}

func TestNormalize_RenamingInvariant(t *testing.T) {
	tree := parse(t, "def f():\n    a = 1\n    b = 2\n    return a + b\n\n"+
		"def g():\n    x = 10\n    y = 20\n    return x + y\n")
	fns := functions(tree)
	require.Len(t, fns, 2)

	a, b := bodyForm(tree, fns[0]), bodyForm(tree, fns[1])
	assert.True(t, Equal(a, b))
	assert.Equal(t, 1.0, Similarity(a, b))
}

func TestNormalize_OperatorsAreKept(t *testing.T) {
	tree := parse(t, "def f(a, b):\n    return a + b\n\ndef g(a, b):\n    return a - b\n")
	fns := functions(tree)
	require.Len(t, fns, 2)

	a, b := bodyForm(tree, fns[0]), bodyForm(tree, fns[1])
	assert.False(t, Equal(a, b))
	assert.Less(t, Similarity(a, b), 1.0)
	assert.Contains(t, a.String(), "operator=+")
}

func TestNormalize_LiteralTags(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = 1\n", ConstInt},
		{"x = 1.5\n", ConstFloat},
		{"x = 2j\n", ConstComplex},
		{"x = 'a'\n", ConstStr},
		{"x = 'a' 'b'\n", ConstStr},
		{"x = b'a'\n", ConstBytes},
		{"x = True\n", ConstBool},
		{"x = None\n", ConstNone},
		{"x = ...\n", ConstEllipsis},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.src), func(t *testing.T) {
			tree := parse(t, tt.src)
			stmt := parser.Statements(tree.Root)[0]
			s := Normalize(tree, stmt).String()
			assert.Contains(t, s, tt.want)
			assert.Contains(t, s, Var)
			assert.NotContains(t, s, "x =")
		})
	}
}

func TestNormalize_FormattedStringKeepsExpressions(t *testing.T) {
	tree := parse(t, "x = f'{a + 1}'\n")
	s := Normalize(tree, parser.Statements(tree.Root)[0]).String()
	assert.Contains(t, s, "interpolation")
	assert.Contains(t, s, ConstInt)
	assert.NotContains(t, s, ConstStr)
}

func TestNormalize_MemberNamesKept(t *testing.T) {
	tree := parse(t, "items.append(1)\nitems.extend(1)\nother.append(2)\n")
	stmts := parser.Statements(tree.Root)
	require.Len(t, stmts, 3)

	appendForm := Normalize(tree, stmts[0])
	extendForm := Normalize(tree, stmts[1])
	otherAppend := Normalize(tree, stmts[2])

	assert.False(t, Equal(appendForm, extendForm))
	assert.True(t, Equal(appendForm, otherAppend))
	assert.Contains(t, appendForm.String(), "name:append")
}

func TestNormalize_AsyncFoldedIntoKind(t *testing.T) {
	tree := parse(t, "def f():\n    pass\n\nasync def g():\n    pass\n")
	fns := functions(tree)
	require.Len(t, fns, 2)

	sync, async := Normalize(tree, fns[0]), Normalize(tree, fns[1])
	assert.Equal(t, parser.KindFunction, sync.Kind)
	assert.Equal(t, "async_"+parser.KindFunction, async.Kind)
}

func TestNormalize_ParenthesesIgnored(t *testing.T) {
	tree := parse(t, "x = (a)\ny = b\n")
	stmts := parser.Statements(tree.Root)
	assert.True(t, Equal(Normalize(tree, stmts[0]), Normalize(tree, stmts[1])))
}

func TestNormalize_DeepNesting(t *testing.T) {
	depth := 300
	src := "x = " + strings.Repeat("[", depth) + "1" + strings.Repeat("]", depth) + "\n"
	tree := parse(t, src)

	form := Normalize(tree, parser.Statements(tree.Root)[0])
	s := form.String()
	assert.Equal(t, depth, strings.Count(s, "(list"))
	assert.True(t, Equal(form, Normalize(tree, parser.Statements(tree.Root)[0])))
}

func TestNormalize_NilNode(t *testing.T) {
	tree := parse(t, "pass\n")
	assert.Equal(t, ConstNone, Normalize(tree, nil).String())
}
