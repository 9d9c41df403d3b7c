package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"greensense/internal/core/errors"
	"greensense/internal/data/cache"
	"greensense/internal/engine/discovery"
	"greensense/internal/engine/parser"
	"greensense/internal/engine/rules"
	"greensense/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of analysing one file or one directory.
type Result struct {
	Root  string
	Mode  rules.Mode
	Files []string
	// Skipped lists files that could not be read or parsed.
	Skipped  []string
	Issues   []rules.Issue
	Duration time.Duration
}

// AnalyzerOptions wires an Analyzer. Nil Parser and Walker fall back to
// defaults; a nil Cache disables caching.
type AnalyzerOptions struct {
	Rules  []rules.Rule
	Parser *parser.Parser
	Walker *discovery.Walker
	Cache  *cache.Cache
	// Fingerprint identifies the rule settings cached issues were produced with.
	Fingerprint uint64
	Workers     int
}

// Analyzer runs a fixed rule set over files and project trees.
type Analyzer struct {
	rules       []rules.Rule
	parser      *parser.Parser
	walker      *discovery.Walker
	cache       *cache.Cache
	fingerprint uint64
	workers     int
}

func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	p := opts.Parser
	if p == nil {
		p = parser.NewParser()
	}
	w := opts.Walker
	if w == nil {
		w = discovery.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{
		rules:       opts.Rules,
		parser:      p,
		walker:      w,
		cache:       opts.Cache,
		fingerprint: opts.Fingerprint,
		workers:     workers,
	}
}

// Rules returns the rules the analyzer runs.
func (a *Analyzer) Rules() []rules.Rule {
	return a.rules
}

// AnalyzeFile runs every rule over a single file. Dead code is judged
// against the file alone.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "AnalyzeFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()
	start := time.Now()

	actx := rules.AnalysisContext{
		ProjectRoot: filepath.Dir(path),
		Mode:        rules.ModeSingleFile,
		File:        path,
	}
	issues, err := a.checkFile(ctx, actx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res := Result{
		Root:     actx.ProjectRoot,
		Mode:     rules.ModeSingleFile,
		Files:    []string{path},
		Issues:   issues,
		Duration: time.Since(start),
	}
	a.observe("file", res)
	return res, nil
}

// AnalyzePath analyses a file, or every Python file below a directory. In
// directory mode per-file rules run on each file and project rules run once
// over the whole tree.
func (a *Analyzer) AnalyzePath(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		code := errors.CodeReadFailed
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return Result{}, errors.AddContext(errors.Wrap(err, code, "cannot analyse path"), errors.CtxPath, path)
	}
	if !info.IsDir() {
		return a.AnalyzeFile(ctx, path)
	}
	return a.analyzeProject(ctx, path)
}

type fileOutcome struct {
	issues []rules.Issue
	ok     bool
}

func (a *Analyzer) analyzeProject(ctx context.Context, root string) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "AnalyzeProject", trace.WithAttributes(attribute.String("root", root)))
	defer span.End()
	start := time.Now()

	files, err := a.walker.Files(ctx, root)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			actx := rules.AnalysisContext{ProjectRoot: root, Mode: rules.ModeProject, File: file}
			issues, err := a.checkFile(gctx, actx)
			if err != nil {
				slog.Warn("skipping file", "path", file, "error", err)
				return nil
			}
			outcomes[i] = fileOutcome{issues: issues, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	res := Result{Root: root, Mode: rules.ModeProject}
	for i, file := range files {
		if !outcomes[i].ok {
			res.Skipped = append(res.Skipped, file)
			continue
		}
		res.Files = append(res.Files, file)
		res.Issues = append(res.Issues, outcomes[i].issues...)
	}

	actx := rules.AnalysisContext{ProjectRoot: root, Mode: rules.ModeProject}
	for _, r := range a.rules {
		pr, ok := r.(rules.ProjectRule)
		if !ok {
			continue
		}
		ruleStart := time.Now()
		issues, err := pr.CheckProject(ctx, actx)
		observability.RuleDuration.WithLabelValues(r.Name()).Observe(time.Since(ruleStart).Seconds())
		if err != nil {
			span.RecordError(err)
			return Result{}, errors.AddContext(err, errors.CtxRule, r.Name())
		}
		res.Issues = append(res.Issues, issues...)
	}

	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("files", len(res.Files)), attribute.Int("issues", len(res.Issues)))
	a.observe("project", res)
	return res, nil
}

// checkFile runs the per-file rules over one file and stamps File on every
// issue. In project mode rules able to judge the whole project are left to
// their project pass.
func (a *Analyzer) checkFile(ctx context.Context, actx rules.AnalysisContext) ([]rules.Issue, error) {
	path := actx.File
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read failed"), errors.CtxPath, path)
	}

	var key string
	if a.cache != nil {
		key = cache.Key(actx.Mode.String()+":"+path, content, a.fingerprint)
		if issues, ok := a.cache.Get(key); ok {
			return issues, nil
		}
	}

	_, span := observability.Tracer.Start(ctx, "CheckFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	tree, err := a.parser.Parse(path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var issues []rules.Issue
	for _, r := range a.rules {
		if _, ok := r.(rules.ProjectRule); ok && actx.Mode == rules.ModeProject {
			continue
		}
		start := time.Now()
		found := r.Check(actx, tree)
		observability.RuleDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
		for i := range found {
			found[i].File = path
		}
		issues = append(issues, found...)
	}

	if a.cache != nil {
		a.cache.Put(key, issues)
	}
	return issues, nil
}

func (a *Analyzer) observe(task string, res Result) {
	observability.AnalysisDuration.WithLabelValues(task).Observe(res.Duration.Seconds())
	observability.FilesAnalyzed.Add(float64(len(res.Files)))
	for _, issue := range res.Issues {
		observability.IssuesTotal.WithLabelValues(issue.Rule).Inc()
	}
}
