package normalize

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two forms in [0, 1] as the sequence-matcher ratio of
// their serialisations. Forms with equal hashes short-circuit to 1.
func Similarity(a, b Form) float64 {
	if a.Hash() == b.Hash() && Equal(a, b) {
		return 1.0
	}
	return Ratio(a.String(), b.String())
}

// Ratio returns 2*M/(len(a)+len(b)) where M is the number of characters in
// the matching blocks found by difflib. The arguments are put in a fixed
// order first so Ratio(a, b) == Ratio(b, a).
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
