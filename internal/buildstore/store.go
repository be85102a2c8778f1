// Package buildstore records per-session build outcomes in SQLite. The
// staleness gate uses the latest record's fingerprint to decide whether a
// session needs rebuilding; the rest is build history for inspection.
package buildstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusBuilt  = "built"
	StatusFailed = "failed"
)

// Record is one completed build attempt for a session.
type Record struct {
	ID          int64
	RunID       string
	Slug        string
	Title       string
	Fingerprint string
	Status      string
	DurationSec float64
	Segments    int
	Error       string
	BuiltAt     time.Time
}

// Store wraps the SQLite-backed build history. An empty path disables
// persistence; every method is then a no-op.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store at path, creating parent directories and the
// schema as needed.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if path == "" {
		return &Store{log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS builds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_sec REAL NOT NULL DEFAULT 0,
    segments INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    built_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_slug_built ON builds(slug, built_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one build record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s.db == nil {
		return nil
	}
	if rec.BuiltAt.IsZero() {
		rec.BuiltAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds(run_id, slug, title, fingerprint, status, duration_sec, segments, error, built_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Slug, rec.Title, rec.Fingerprint, rec.Status,
		rec.DurationSec, rec.Segments, rec.Error, rec.BuiltAt)
	return err
}

// Latest returns the most recent record for a slug, or nil when there is
// none (or persistence is disabled).
func (s *Store) Latest(ctx context.Context, slug string) (*Record, error) {
	if s.db == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, slug, title, fingerprint, status, duration_sec, segments, COALESCE(error, ''), built_at
		 FROM builds WHERE slug = ? ORDER BY built_at DESC, id DESC LIMIT 1`, slug)

	var rec Record
	var built string
	err := row.Scan(&rec.ID, &rec.RunID, &rec.Slug, &rec.Title, &rec.Fingerprint,
		&rec.Status, &rec.DurationSec, &rec.Segments, &rec.Error, &built)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, built); err == nil {
		rec.BuiltAt = ts
	}
	return &rec, nil
}

// History returns up to limit records for a slug, newest first.
func (s *Store) History(ctx context.Context, slug string, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, slug, title, fingerprint, status, duration_sec, segments, COALESCE(error, ''), built_at
		 FROM builds WHERE slug = ? ORDER BY built_at DESC, id DESC LIMIT ?`, slug, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var built string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Slug, &rec.Title, &rec.Fingerprint,
			&rec.Status, &rec.DurationSec, &rec.Segments, &rec.Error, &built); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, built); err == nil {
			rec.BuiltAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
