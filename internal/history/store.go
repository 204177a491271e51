// Package history keeps the most recent narration outputs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Limit is how many outputs are remembered.
const Limit = 5

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an index outside the list.
var ErrNotFound = errors.New("history entry not found")

// Entry is one remembered output.
type Entry struct {
	Path      string
	CreatedAt time.Time
	Mode      string
	Duration  time.Duration
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Add records an output as the newest entry. An existing entry for the same
// path is replaced, and entries beyond Limit are dropped.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.Path == "" {
		return errors.New("history entry has no path")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// REPLACE deletes the old row, so the new one gets the highest rowid.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO outputs (path, created_at, mode, duration_ms) VALUES (?, ?, ?, ?)`,
		e.Path,
		e.CreatedAt.UTC().Format(timeLayout),
		e.Mode,
		e.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM outputs WHERE path NOT IN (
            SELECT path FROM outputs ORDER BY created_at DESC, rowid DESC LIMIT ?
        )`,
		Limit,
	); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history entry: %w", err)
	}
	return nil
}

// List returns the remembered outputs, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, created_at, mode, duration_ms FROM outputs
        ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			createdAt  string
			durationMs int64
		)
		if err := rows.Scan(&e.Path, &createdAt, &e.Mode, &durationMs); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the n-th newest entry, counting from 1.
func (s *Store) Get(ctx context.Context, n int) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	if n < 1 || n > len(entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, n)
	}
	return entries[n-1], nil
}

// Clear forgets every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM outputs"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
