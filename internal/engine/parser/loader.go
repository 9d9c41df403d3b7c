package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

const LanguagePython = "python"

var (
	pythonOnce sync.Once
	pythonLang *sitter.Language
)

// PythonLanguage returns the shared tree-sitter grammar for Python.
func PythonLanguage() *sitter.Language {
	pythonOnce.Do(func() {
		pythonLang = sitter.NewLanguage(tree_sitter_python.Language())
	})
	return pythonLang
}

// IsPythonPath reports whether path names a Python source file.
func IsPythonPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}
