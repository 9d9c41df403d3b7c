package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func functionOfLines(name string, total int) string {
	var b strings.Builder
	b.WriteString("def " + name + "():\n")
	for i := 1; i < total; i++ {
		b.WriteString("    x = 1\n")
	}
	return b.String()
}

func TestLongMethod_LOCBoundary(t *testing.T) {
	r := NewLongMethodRule(DefaultLongMethodConfig())

	assert.Empty(t, runRule(t, r, functionOfLines("ok", 30)))

	issues := runRule(t, r, functionOfLines("long", 31))
	require.Len(t, issues, 1)
	assert.Equal(t, LongMethodName, issues[0].Rule)
	assert.Equal(t, 1, issues[0].Line)
	assert.Equal(t, 31, issues[0].EndLine)
	assert.Contains(t, issues[0].Message, "Method 'long' is too long: LOC: 31 (max: 30)")
	assert.NotContains(t, issues[0].Message, "Cyclomatic")
}

func TestLongMethod_Complexity(t *testing.T) {
	r := NewLongMethodRule(LongMethodConfig{MaxLOC: 100, MaxCC: 2})
	src := lines(
		"def branchy(xs):",
		"    for x in xs:",
		"        if x and x > 1:",
		"            pass",
	)
	issues := runRule(t, r, src)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "Cyclomatic Complexity: 4 (max: 2)")
	assert.Contains(t, issues[0].Message, "loops: 1")
	assert.NotContains(t, issues[0].Message, "LOC:")
}

func TestLongMethod_NestedAndAsyncFunctions(t *testing.T) {
	r := NewLongMethodRule(LongMethodConfig{MaxLOC: 2, MaxCC: 100})
	src := lines(
		"class A:",
		"    async def outer(self):",
		"        def inner():",
		"            a = 1",
		"            return a",
		"        return inner",
	)
	issues := runRule(t, r, src)
	require.Len(t, issues, 2)

	names := []string{issues[0].Message, issues[1].Message}
	assert.Contains(t, strings.Join(names, "|"), "Method 'outer'")
	assert.Contains(t, strings.Join(names, "|"), "Method 'inner'")
}
