// Package cache keeps per-file rule results keyed by file content, so
// unchanged files are not re-analysed across runs.
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"greensense/internal/engine/rules"
	"greensense/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion changes whenever the persisted layout or rule output changes
// shape; files written with another version are ignored.
const schemaVersion uint16 = 1

type payload struct {
	Schema  uint16  `msgpack:"schema"`
	Entries []entry `msgpack:"entries"`
}

type entry struct {
	Key    string        `msgpack:"key"`
	Issues []rules.Issue `msgpack:"issues"`
}

// Cache is an LRU of rule issues. It is safe for concurrent use.
type Cache struct {
	path    string
	entries *lru[string, []rules.Issue]
	dirty   atomic.Bool
}

// New returns an in-memory cache holding at most maxEntries files.
func New(maxEntries int) *Cache {
	return &Cache{entries: newLRU[string, []rules.Issue](maxEntries)}
}

// Open returns a cache backed by path. A missing, unreadable or outdated file
// yields an empty cache; only a failure to stat path is an error.
func Open(path string, maxEntries int) (*Cache, error) {
	c := New(maxEntries)
	c.path = path

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()

	var p payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		slog.Warn("discarding unreadable issue cache", "path", path, "error", err)
		return c, nil
	}
	if p.Schema != schemaVersion {
		slog.Debug("discarding issue cache with old schema", "path", path, "schema", p.Schema)
		return c, nil
	}
	for _, e := range p.Entries {
		c.entries.put(e.Key, e.Issues)
	}
	return c, nil
}

// Key identifies a file's results by path, content and the rule settings
// that produced them.
func Key(path string, content []byte, fingerprint uint64) string {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], fingerprint)
	_, _ = d.Write(buf[:])
	_, _ = d.Write(content)
	return path + "@" + strconv.FormatUint(d.Sum64(), 16)
}

// Fingerprint hashes any msgpack-encodable settings value.
func Fingerprint(v any) (uint64, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("fingerprint settings: %w", err)
	}
	return xxhash.Sum64(b), nil
}

func (c *Cache) Get(key string) ([]rules.Issue, bool) {
	issues, ok := c.entries.get(key)
	if !ok {
		return nil, false
	}
	observability.CacheHitsTotal.Inc()
	out := make([]rules.Issue, len(issues))
	copy(out, issues)
	return out, true
}

func (c *Cache) Put(key string, issues []rules.Issue) {
	stored := make([]rules.Issue, len(issues))
	copy(stored, issues)
	c.entries.put(key, stored)
	c.dirty.Store(true)
}

func (c *Cache) Len() int {
	return c.entries.len()
}

// Save persists the cache when it has changed since it was opened or last
// saved. The file is replaced atomically. In-memory caches are never saved.
func (c *Cache) Save() error {
	if c.path == "" || !c.dirty.Load() {
		return nil
	}

	p := payload{Schema: schemaVersion}
	c.entries.oldestFirst(func(k string, v []rules.Issue) {
		p.Entries = append(p.Entries, entry{Key: k, Issues: v})
	})

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(&p); err != nil {
		f.Close()
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	c.dirty.Store(false)
	return nil
}
