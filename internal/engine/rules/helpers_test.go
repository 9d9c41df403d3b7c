package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"greensense/internal/engine/parser"

	"github.com/stretchr/testify/require"
)

var testParser = parser.NewParser()

func parseSource(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := testParser.Parse("test.py", []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func runRule(t *testing.T, r Rule, src string) []Issue {
	t.Helper()
	return r.Check(AnalysisContext{Mode: ModeSingleFile, File: "test.py"}, parseSource(t, src))
}

// lines joins source lines with newlines and a trailing newline.
func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func filterMessages(issues []Issue, substr string) []Issue {
	var out []Issue
	for _, i := range issues {
		if strings.Contains(i.Message, substr) {
			out = append(out, i)
		}
	}
	return out
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
