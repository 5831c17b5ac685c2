// Package history records one row per walk in a local SQLite database so
// operators can see what ran, how long it took, and whether it failed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Outcomes stored in the runs table.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Sources identify what triggered a walk.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
	SourceCLI       = "cli"
)

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 20

const (
	sqlInsertRun = `INSERT INTO runs
		(id, started_at, duration_ms, source, site, drives, folders, listings, files, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecentRuns = `SELECT id, started_at, duration_ms, source, site,
		drives, folders, listings, files, outcome, error
		FROM runs ORDER BY started_at DESC, id LIMIT ?`
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history: store closed")

// Run is one recorded walk.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Source    string        `json:"source"`
	Site      string        `json:"site"`
	Drives    int           `json:"drives"`
	Folders   int           `json:"folders"`
	Listings  int           `json:"listings"`
	Files     int           `json:"files"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// Store is the sole writer to the history database. Record and Recent may
// run concurrently with each other and with Close; Close waits for them.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB // nil once closed
	logger *slog.Logger
}

// Open creates the database file and its parent directory if needed, applies
// migrations and returns a ready Store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: empty database path")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("history: creating %s: %w", dir, err)
		}
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store opened", slog.String("db_path", path))

	return &Store{db: db, logger: logger}, nil
}

// Record inserts run. A missing ID is filled with a fresh UUID and returned.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return "", ErrClosed
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if run.Outcome == "" {
		run.Outcome = OutcomeOK
	}

	_, err := s.db.ExecContext(ctx, sqlInsertRun,
		run.ID, run.StartedAt.UnixNano(), run.Duration.Milliseconds(), run.Source, run.Site,
		run.Drives, run.Folders, run.Listings, run.Files, run.Outcome, run.Error,
	)
	if err != nil {
		return "", fmt.Errorf("history: recording run %s: %w", run.ID, err)
	}

	s.logger.Debug("run recorded",
		slog.String("run_id", run.ID),
		slog.String("outcome", run.Outcome),
	)

	return run.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r          Run
			startedNs  int64
			durationMs int64
		)

		if err := rows.Scan(&r.ID, &startedNs, &durationMs, &r.Source, &r.Site,
			&r.Drives, &r.Folders, &r.Listings, &r.Files, &r.Outcome, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}

		r.StartedAt = time.Unix(0, startedNs)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating runs: %w", err)
	}

	return runs, nil
}

// Close releases the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("history: closing database: %w", err)
	}

	return nil
}
