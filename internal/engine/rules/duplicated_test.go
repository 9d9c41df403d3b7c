package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicatedCode_SimilarFunctionsGrouped(t *testing.T) {
	src := lines(
		"def f1():",
		"    a = 1",
		"    b = 2",
		"    return a + b",
		"",
		"def f2():",
		"    x = 1",
		"    y = 2",
		"    return x + y",
		"",
		"def f3():",
		"    print(\"hi\")",
	)
	issues := runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, DuplicatedCodeName, issue.Rule)
	assert.Equal(t, DuplicatedCodeID, issue.RuleID)
	assert.Equal(t, 1, issue.Line)
	assert.Equal(t, 4, issue.EndLine)
	assert.Contains(t, issue.Message, "Similar function implementations (similarity: 100.0%)")
	assert.Contains(t, issue.Message, "f1() (line 1, 3 statements)")
	assert.Contains(t, issue.Message, "f2() (line 6, 3 statements)")
	assert.NotContains(t, issue.Message, "f3")
}

func TestDuplicatedCode_GroupGrowsFromAnyMember(t *testing.T) {
	body := lines(
		"    total = 0",
		"    total += 1",
		"    return total",
	)
	src := "def a():\n" + body + "\ndef b():\n" + body + "\ndef c():\n" + body
	issues := runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "a() (line 1")
	assert.Contains(t, issues[0].Message, "b() (line 6")
	assert.Contains(t, issues[0].Message, "c() (line 11")
}

func TestDuplicatedCode_SameNameFunctionsStayDistinct(t *testing.T) {
	body := lines(
		"        items = []",
		"        items.append(1)",
		"        return items",
	)
	src := "class A:\n    def build(self):\n" + body + "class B:\n    def build(self):\n" + body
	issues := runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "build() (line 2, 3 statements), build() (line 7, 3 statements)")
}

func TestDuplicatedCode_DissimilarFunctionsNotReported(t *testing.T) {
	src := lines(
		"def a():",
		"    x = 1",
		"    y = 2",
		"    return x + y",
		"",
		"def b(path):",
		"    for i in range(10):",
		"        print(i)",
		"    with open(path) as fh:",
		"        fh.write('x')",
		"    raise ValueError('boom')",
	)
	assert.Empty(t, runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src))
}

func TestDuplicatedCode_WithinFunction(t *testing.T) {
	src := lines(
		"def work(items):",
		"    total = 0",
		"    for i in items:",
		"        total += i",
		"    print(total)",
		"    count = 0",
		"    for j in items:",
		"        count += j",
		"    print(count)",
	)

	cfg := DefaultDuplicatedCodeConfig()
	issues := runRule(t, NewDuplicatedCodeRule(cfg), src)
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Line)
	assert.Equal(t, 5, issues[0].EndLine)
	assert.Equal(t,
		"Duplicated code block in function 'work' (similarity: 100.0%): lines 2-5 and 6-9 (3 statements). Consider extracting to a separate function.",
		issues[0].Message)

	cfg.CheckWithinFunctions = false
	assert.Empty(t, runRule(t, NewDuplicatedCodeRule(cfg), src))
}

func TestDuplicatedCode_WithinFunctionNeedsTwiceMinStatements(t *testing.T) {
	src := lines(
		"def short(items):",
		"    total = 0",
		"    total += 1",
		"    print(total)",
		"    total = 0",
		"    total += 1",
	)
	assert.Empty(t, runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src))
}

func TestDuplicatedCode_BetweenDisabled(t *testing.T) {
	cfg := DefaultDuplicatedCodeConfig()
	cfg.CheckBetweenFunctions = false
	src := lines(
		"def f1():",
		"    a = 1",
		"    b = 2",
		"    return a + b",
		"def f2():",
		"    x = 1",
		"    y = 2",
		"    return x + y",
	)
	assert.Empty(t, runRule(t, NewDuplicatedCodeRule(cfg), src))
}

func TestDuplicatedCode_SingleQualifyingFunction(t *testing.T) {
	src := lines(
		"def only():",
		"    a = 1",
		"    b = 2",
		"    return a + b",
	)
	assert.Empty(t, runRule(t, NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig()), src))
}

func TestCodeBlocks_WindowSizes(t *testing.T) {
	src := "def f():\n" + lines(
		"    a = 1", "    a = 2", "    a = 3", "    a = 4", "    a = 5",
		"    a = 6", "    a = 7", "    a = 8", "    a = 9", "    a = 10",
	)
	tree := parseSource(t, src)
	rule := NewDuplicatedCodeRule(DefaultDuplicatedCodeConfig())
	records := rule.functionRecords(tree)
	require.Len(t, records, 1)

	blocks := codeBlocks(records[0], 3)
	sizes := make(map[int]int)
	for _, b := range blocks {
		sizes[b.Statements]++
		assert.GreaterOrEqual(t, b.EndLine, b.StartLine)
		assert.Len(t, b.Form.Fields, b.Statements)
	}
	// 10 statements: windows of 3..7 at every start that fits.
	assert.Equal(t, map[int]int{3: 8, 4: 7, 5: 6, 6: 5, 7: 4}, sizes)
}
