// Package history records analysis runs in SQLite so smell trends can be
// compared across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName        = "sqlite"
	maxAttempts       = 5
	defaultProjectKey = "default"
	// Fixed width so timestamps order correctly as text.
	timestampLayout   = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores run and its per-rule counts, assigning an ID and timestamp
// when missing. The stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ProjectKey = projectKey(run.ProjectKey)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	run.Timestamp = run.Timestamp.UTC()

	err := s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, project_key, ts_utc, mode, file_count, issue_count, smell_lines, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.ProjectKey,
			run.Timestamp.Format(timestampLayout),
			run.Mode,
			run.Files,
			run.Issues,
			run.SmellLines,
			run.Duration.Milliseconds(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for rule, count := range run.RuleCounts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_rule_counts (run_id, rule, issue_count) VALUES (?, ?, ?)`,
				run.ID, rule, count,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// RecentRuns returns up to limit runs of projectKey, oldest first. A limit
// of zero or less returns every run.
func (s *Store) RecentRuns(ctx context.Context, key string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, project_key, ts_utc, mode, file_count, issue_count, smell_lines, duration_ms
FROM runs
WHERE project_key = ?
ORDER BY ts_utc DESC, id DESC`
	args := []any{projectKey(key)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var runs []Run
	err := s.withRetry("load runs", func() error {
		runs = runs[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				run        Run
				tsRaw      string
				durationMS int64
			)
			if err := rows.Scan(&run.ID, &run.ProjectKey, &tsRaw, &run.Mode,
				&run.Files, &run.Issues, &run.SmellLines, &durationMS); err != nil {
				return fmt.Errorf("scan run row: %w", err)
			}
			ts, err := time.Parse(timestampLayout, tsRaw)
			if err != nil {
				return fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
			}
			run.Timestamp = ts.UTC()
			run.Duration = time.Duration(durationMS) * time.Millisecond
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for i := range runs {
		counts, err := s.ruleCounts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].RuleCounts = counts
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// Trend compares the two most recent runs of key.
func (s *Store) Trend(ctx context.Context, key string) (Trend, error) {
	runs, err := s.RecentRuns(ctx, key, 2)
	if err != nil {
		return Trend{}, err
	}
	return BuildTrend(runs), nil
}

func (s *Store) ruleCounts(ctx context.Context, runID string) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.withRetry("load rule counts", func() error {
		clear(counts)
		rows, err := s.db.QueryContext(ctx, `SELECT rule, issue_count FROM run_rule_counts WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				rule  string
				count int
			)
			if err := rows.Scan(&rule, &count); err != nil {
				return fmt.Errorf("scan rule count row: %w", err)
			}
			counts[rule] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err looks like a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func projectKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return defaultProjectKey
	}
	return key
}
