// Package discovery finds the Python files of a project while honouring
// exclusion patterns.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"greensense/internal/core/errors"
	"greensense/internal/engine/parser"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// DefaultExcludeDirs are directory base names never descended into.
var DefaultExcludeDirs = []string{
	"venv",
	".venv",
	"env",
	"__pycache__",
	".git",
	"node_modules",
	".pytest_cache",
	".tox",
}

// Options configures exclusions. Dirs and Files are glob patterns matched
// against base names; Paths are doublestar patterns matched against the
// slash-separated path relative to the scan root.
type Options struct {
	Dirs  []string
	Files []string
	Paths []string
}

// Walker lists Python files under a root.
type Walker struct {
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	paths     []string
}

func New(opts Options) (*Walker, error) {
	dirGlobs, err := compileGlobs(opts.Dirs, "dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(opts.Files, "file")
	if err != nil {
		return nil, err
	}
	for _, p := range opts.Paths {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("invalid exclude path pattern %q", p))
		}
	}
	return &Walker{
		dirGlobs:  dirGlobs,
		fileGlobs: fileGlobs,
		paths:     append([]string(nil), opts.Paths...),
	}, nil
}

// Default returns a walker with only DefaultExcludeDirs.
func Default() *Walker {
	w, _ := New(Options{Dirs: DefaultExcludeDirs})
	return w
}

func compileGlobs(patterns []string, kind string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude %s pattern %q", kind, p))
		}
		out = append(out, g)
	}
	return out, nil
}

// Files returns every Python file under root in lexical order. A root that
// is itself a Python file is returned as is.
func (w *Walker) Files(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root && !d.IsDir() {
			if parser.IsPythonPath(path) {
				files = append(files, path)
			}
			return nil
		}

		if d.IsDir() {
			if path != root && w.ExcludedDir(root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.IsPythonPath(path) || w.ExcludedFile(root, path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "walk failed"), errors.CtxPath, root)
	}
	sort.Strings(files)
	return files, nil
}

// ExcludedDir reports whether a directory below root is skipped.
func (w *Walker) ExcludedDir(root, path string) bool {
	base := filepath.Base(path)
	for _, g := range w.dirGlobs {
		if g.Match(base) {
			return true
		}
	}
	return w.matchesPath(root, path)
}

// ExcludedFile reports whether a file below root is skipped. Files inside
// an excluded directory are excluded as well.
func (w *Walker) ExcludedFile(root, path string) bool {
	base := filepath.Base(path)
	for _, g := range w.fileGlobs {
		if g.Match(base) {
			return true
		}
	}
	if w.matchesPath(root, path) {
		return true
	}
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	dir := root
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		dir = filepath.Join(dir, part)
		if w.ExcludedDir(root, dir) {
			return true
		}
	}
	return false
}

func (w *Walker) matchesPath(root, path string) bool {
	if len(w.paths) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.paths {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
