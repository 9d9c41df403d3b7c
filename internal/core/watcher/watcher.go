// Package watcher reports changed Python files below a project root.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"greensense/internal/engine/discovery"
	"greensense/internal/engine/parser"
	"greensense/internal/shared/observability"
	"greensense/internal/shared/util"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher. A nil Walker uses the default exclusions and
// a nil Limiter never throttles.
type Options struct {
	Root     string
	Walker   *discovery.Walker
	Debounce time.Duration
	Limiter  *util.Limiter
}

// Watcher batches file system events into change sets. A change set is
// handed to the callback once no event arrived for the debounce period and
// the limiter grants a run; otherwise it is held for the next period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	walker    *discovery.Walker
	debounce  time.Duration
	limiter   *util.Limiter
	onChange  func([]string)

	callbackMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
	closed    bool

	loopWG  sync.WaitGroup
	flushWG sync.WaitGroup
	once    sync.Once
}

func New(opts Options, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || opts.Root == "" {
		return nil, os.ErrInvalid
	}
	walker := opts.Walker
	if walker == nil {
		walker = discovery.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		root:      filepath.Clean(opts.Root),
		walker:    walker,
		debounce:  opts.Debounce,
		limiter:   opts.Limiter,
		onChange:  onChange,
		pending:   make(map[string]struct{}),
	}, nil
}

// Start registers every non-excluded directory below the root and begins
// delivering change sets.
func (w *Watcher) Start() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	w.loopWG.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && w.walker.ExcludedDir(w.root, path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer w.loopWG.Done()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.walker.ExcludedDir(w.root, event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			w.enqueueExistingFiles(event.Name)
			return
		}
	}
	if !w.relevant(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.scheduleChange(event.Name)
	}
}

// relevant reports whether path is a Python file the walker would analyse.
func (w *Watcher) relevant(path string) bool {
	return parser.IsPythonPath(path) && !w.walker.ExcludedFile(w.root, path)
}

func (w *Watcher) enqueueExistingFiles(dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if w.relevant(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[path] = struct{}{}
	w.resetTimerLocked()
}

// resetTimerLocked restarts the debounce period. Every armed timer holds
// one flushWG slot until it has fired or been stopped.
func (w *Watcher) resetTimerLocked() {
	if w.closed {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.flushWG.Done()
	}
	w.flushWG.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.flushWG.Done()
		w.flush()
	})
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || w.closed {
		w.pendingMu.Unlock()
		return
	}
	if !w.limiter.Allow() {
		observability.WatcherRunsDroppedTotal.Inc()
		slog.Debug("analysis run deferred by rate limit", "pending", len(w.pending))
		w.resetTimerLocked()
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

// Close stops event delivery and waits for a running callback to return.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.pendingMu.Lock()
		w.closed = true
		if w.timer != nil && w.timer.Stop() {
			w.flushWG.Done()
		}
		w.pendingMu.Unlock()

		err = w.fsWatcher.Close()
		w.loopWG.Wait()
		w.flushWG.Wait()
	})
	return err
}
