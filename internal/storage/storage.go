// Package storage provides the SQLite storage layer for Hisho.
//
// It owns a single database/sql handle to a local SQLite file, a write mutex
// serializing mutations (concurrent plan steps may each log a tool
// execution), an embedded forward-only migration runner, and query methods
// for all tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session id has no durable row.
var ErrSessionNotFound = errors.New("storage: session not found")

// timeLayout is a fixed-width UTC timestamp format so that lexical ordering
// in SQL matches chronological ordering.
const timeLayout = "2006-01-02 15:04:05.000000000"

// DB wraps the SQLite handle. All writers serialize on mu so concurrent
// callers never interleave partial writes on the single connection.
type DB struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// New opens (creating if needed) the SQLite database at path.
// Use ":memory:" for tests.
func New(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// One connection: SQLite allows a single writer, and an in-memory
	// database exists per connection, so pooling would split state.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: enable foreign keys: %w", err)
	}

	return &DB{db: db, logger: logger}, nil
}

// Close shuts down the database handle.
func (db *DB) Close() error {
	return db.db.Close()
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: parse timestamp %q: %w", s, err)
	}
	return t, nil
}
