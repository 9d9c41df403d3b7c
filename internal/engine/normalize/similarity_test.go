package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"identical", "abcd", "abcd", 1.0},
		{"one substitution", "abcd", "abce", 0.75},
		{"disjoint", "aaaa", "bbbb", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"abcd", "bcde"},
		{"(seq (assignment left=VAR))", "(seq (return_statement VAR))"},
		{"qabxcd", "abycdf"},
		{"private Thread currentThread;", "private volatile Thread currentThread;"},
	}
	for _, p := range pairs {
		assert.Equal(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_SymmetricOnForms(t *testing.T) {
	tree := parse(t, "def f(a):\n    a = 1\n    print(a)\n    return a\n\n"+
		"def g(b):\n    for i in b:\n        print(i)\n    return None\n")
	fns := functions(tree)
	a, b := bodyForm(tree, fns[0]), bodyForm(tree, fns[1])

	ab, ba := Similarity(a, b), Similarity(b, a)
	assert.Equal(t, ab, ba)
	assert.Greater(t, ab, 0.0)
	assert.Less(t, ab, 1.0)
}

func TestSimilarity_EqualFormsScoreOne(t *testing.T) {
	// Long runs of a few characters trip difflib's popular-element
	// heuristic; equal forms must still score exactly one.
	leaf := Form{Kind: Var, Leaf: true}
	seq := Form{Kind: SequenceKind}
	for i := 0; i < 400; i++ {
		seq.Fields = append(seq.Fields, Field{Value: leaf})
	}
	assert.Equal(t, 1.0, Similarity(seq, seq))
}
