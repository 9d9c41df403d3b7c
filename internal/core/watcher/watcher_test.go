package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"greensense/internal/engine/discovery"
	"greensense/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, opts Options) (*Watcher, <-chan []string) {
	t.Helper()
	changes := make(chan []string, 16)
	w, err := New(opts, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { require.NoError(t, w.Close()) })
	return w, changes
}

func waitForChange(t *testing.T, changes <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-changes:
		return paths
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change set")
		return nil
	}
}

// waitForPath drains change sets until one contains path.
func waitForPath(t *testing.T, changes <-chan []string, path string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == path {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no change set contained %s", path)
		}
	}
}

func expectNoChange(t *testing.T, changes <-chan []string, within time.Duration) {
	t.Helper()
	select {
	case paths := <-changes:
		t.Fatalf("unexpected change set %v", paths)
	case <-time.After(within):
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	_, err := New(Options{Root: t.TempDir()}, nil)
	assert.ErrorIs(t, err, os.ErrInvalid)

	_, err = New(Options{}, func([]string) {})
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestWatcher_ReportsPythonChanges(t *testing.T) {
	root := t.TempDir()
	_, changes := startWatcher(t, Options{Root: root, Debounce: 50 * time.Millisecond})

	file := filepath.Join(root, "module.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))

	paths := waitForChange(t, changes)
	assert.Contains(t, paths, file)
}

func TestWatcher_IgnoresNonPythonAndExcludedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "venv"), 0o755))
	walker, err := discovery.New(discovery.Options{
		Dirs:  discovery.DefaultExcludeDirs,
		Files: []string{"*_generated.py"},
	})
	require.NoError(t, err)
	_, changes := startWatcher(t, Options{Root: root, Walker: walker, Debounce: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "api_generated.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "venv", "site.py"), []byte("x = 1\n"), 0o644))

	expectNoChange(t, changes, 400*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	_, changes := startWatcher(t, Options{Root: root, Debounce: 200 * time.Millisecond})

	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "b.py")
	require.NoError(t, os.WriteFile(a, []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("y = 2\n"), 0o644))

	paths := waitForChange(t, changes)
	assert.Contains(t, paths, a)
	assert.Contains(t, paths, b)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, changes := startWatcher(t, Options{Root: root, Debounce: 50 * time.Millisecond})

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(sub, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))

	waitForPath(t, changes, file)
}

func TestWatcher_RateLimitDefersRuns(t *testing.T) {
	root := t.TempDir()
	limiter := util.NewLimiter(2, 1)
	_, changes := startWatcher(t, Options{Root: root, Debounce: 20 * time.Millisecond, Limiter: limiter})

	first := filepath.Join(root, "first.py")
	require.NoError(t, os.WriteFile(first, []byte("x = 1\n"), 0o644))
	waitForPath(t, changes, first)
	start := time.Now()

	second := filepath.Join(root, "second.py")
	require.NoError(t, os.WriteFile(second, []byte("x = 2\n"), 0o644))
	waitForPath(t, changes, second)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond, "the second run waits for a token")
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	w, err := New(Options{Root: t.TempDir(), Debounce: 10 * time.Millisecond}, func([]string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.scheduleChange(filepath.Join(w.root, "x.py"))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
