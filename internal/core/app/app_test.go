package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"greensense/internal/core/config"
	"greensense/internal/core/errors"
	"greensense/internal/data/cache"
	"greensense/internal/engine/rules"
	"greensense/internal/ui/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const twinFunctions = `def compute_total(items):
    total = 0
    for item in items:
        total += item
    return total


def compute_sum(values):
    result = 0
    for value in values:
        result += value
    return result
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultAnalyzer(t *testing.T, c *cache.Cache) *Analyzer {
	t.Helper()
	rs, err := rules.Build(rules.DefaultOptions(), nil, nil)
	require.NoError(t, err)
	return NewAnalyzer(AnalyzerOptions{Rules: rs, Cache: c, Workers: 2})
}

func countRule(issues []rules.Issue, name string) int {
	n := 0
	for _, i := range issues {
		if i.Rule == name {
			n++
		}
	}
	return n
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Cache.Path = filepath.Join(dir, "cache.msgpack")
	cfg.Watch.Debounce = 50 * time.Millisecond
	cfg.Watch.MaxRunsPerSecond = 0
	return cfg
}

func TestAnalyzeFile_TwinFunctions(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "twins.py"), twinFunctions)

	res, err := defaultAnalyzer(t, nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, rules.ModeSingleFile, res.Mode)
	assert.Equal(t, []string{path}, res.Files)
	assert.Equal(t, 1, countRule(res.Issues, rules.DuplicatedCodeName))
	assert.Zero(t, countRule(res.Issues, rules.GodClassName))
	assert.Zero(t, countRule(res.Issues, rules.LongMethodName))
	for _, issue := range res.Issues {
		assert.Equal(t, path, issue.File)
		assert.GreaterOrEqual(t, issue.EndLine, issue.Line)
	}
}

func TestAnalyzeFile_SyntaxError(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "broken.py"), "def broken(:\n    pass\n")

	_, err := defaultAnalyzer(t, nil).AnalyzeFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseFailed))
}

func TestAnalyzePath_Missing(t *testing.T) {
	_, err := defaultAnalyzer(t, nil).AnalyzePath(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestAnalyzePath_Project(t *testing.T) {
	root := t.TempDir()
	lib := writeFile(t, filepath.Join(root, "pkg", "lib.py"), "def helper():\n    return 1\n\n\ndef orphan():\n    return 2\n")
	entry := writeFile(t, filepath.Join(root, "main.py"), "from pkg.lib import helper\n\nprint(helper())\n")
	broken := writeFile(t, filepath.Join(root, "broken.py"), "def broken(:\n")
	writeFile(t, filepath.Join(root, "venv", "site.py"), "def vendored():\n    pass\n")

	res, err := defaultAnalyzer(t, nil).AnalyzePath(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, rules.ModeProject, res.Mode)
	assert.Equal(t, []string{entry, lib}, res.Files)
	assert.Equal(t, []string{broken}, res.Skipped)

	var dead []rules.Issue
	for _, issue := range res.Issues {
		if issue.Rule == rules.DeadCodeName {
			dead = append(dead, issue)
		}
	}
	require.Len(t, dead, 1, "helper is used from another file")
	assert.Equal(t, lib, dead[0].File)
	assert.Contains(t, dead[0].Message, "'orphan'")
}

func TestAnalyzePath_FileDelegatesToSingleFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "one.py"), "def helper():\n    return 1\n")

	res, err := defaultAnalyzer(t, nil).AnalyzePath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, rules.ModeSingleFile, res.Mode)
	assert.Equal(t, 1, countRule(res.Issues, rules.DeadCodeName))
}

func TestAnalyzer_CachesPerFileResults(t *testing.T) {
	c := cache.New(16)
	a := defaultAnalyzer(t, c)
	path := writeFile(t, filepath.Join(t.TempDir(), "twins.py"), twinFunctions)

	first, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	second, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, 1, c.Len(), "unchanged content reuses the entry")

	writeFile(t, path, twinFunctions+"\nx = []\n")
	_, err = a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestApp_RunRecordsHistory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "twins.py"), twinFunctions)

	a, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	first, err := a.Run(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.Trend, "Initial run"), first.Trend)
	assert.NotEmpty(t, first.Rules)

	second, err := a.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Code smell LOC unchanged (%d LOC)", report.SmellLines(second.Issues)), second.Trend)

	runs, err := a.History(context.Background(), root, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, len(second.Issues), runs[1].Issues)
	assert.Equal(t, 1, runs[1].RuleCounts[rules.DuplicatedCodeName])
}

func TestApp_HistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	cfg.Cache.Enabled = false
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "x = 1\n")
	rep, err := a.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, rep.Trend)

	_, err = a.History(context.Background(), root, 5)
	assert.Error(t, err)
}

func TestApp_ReloadChangesRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "twins.py"), twinFunctions)

	cfg := testConfig(t)
	cfg.History.Enabled = false
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	rep, err := a.Run(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, countRule(rep.Issues, rules.DuplicatedCodeName))

	next := testConfig(t)
	next.Rules.DuplicatedCode.Enabled = false
	require.NoError(t, a.Reload(next))

	rep, err = a.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, countRule(rep.Issues, rules.DuplicatedCodeName), "cached results of other settings are not reused")
	assert.Same(t, next, a.Config())
}

func TestApp_Watch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "x = 1\n")

	cfg := testConfig(t)
	cfg.History.Enabled = false
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	reports := make(chan report.Report, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, root, func(r report.Report) { reports <- r })
	}()

	select {
	case r := <-reports:
		assert.Equal(t, 1, r.Files)
	case <-time.After(3 * time.Second):
		t.Fatal("no initial report")
	}

	writeFile(t, filepath.Join(root, "b.py"), "def f(x=[]):\n    return x\n")
	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case r := <-reports:
			found = countRule(r.Issues, rules.MutableDefaultName) == 1
		case <-deadline:
			t.Fatal("no report after change")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestReadCodeInfo(t *testing.T) {
	src := "class A:\n    def m(self):\n        def inner():\n            pass\n\n\nasync def run():\n    pass\n"
	path := writeFile(t, filepath.Join(t.TempDir(), "info.py"), src)

	info, err := ReadCodeInfo(nil, path)
	require.NoError(t, err)
	assert.Equal(t, CodeInfo{Path: path, Lines: 8, Functions: 3, Classes: 1}, info)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("x = 1")))
	assert.Equal(t, 1, countLines([]byte("x = 1\n")))
	assert.Equal(t, 3, countLines([]byte("a\n\nb")))
}
