package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ashita-ai/hisho/internal/model"
)

// CreateSession inserts the durable session row if it does not exist yet.
// Re-creating an existing id is a no-op here: the durable row is authoritative
// for history and is never deleted or reset automatically.
func (db *DB) CreateSession(ctx context.Context, sessionID, name string, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var sessionName sql.NullString
	if name != "" {
		sessionName = sql.NullString{String: name, Valid: true}
	}
	if _, err := db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, created_at, last_activity, session_name)
		 VALUES (?, ?, ?, ?)`,
		sessionID, formatTime(now), formatTime(now), sessionName,
	); err != nil {
		return fmt.Errorf("storage: create session: %w", err)
	}
	return nil
}

// GetSession returns the durable session row, or ErrSessionNotFound.
func (db *DB) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	var (
		s              model.Session
		createdAt      string
		lastActivity   string
		summary, sname sql.NullString
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, last_activity, context_summary, session_name
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&s.SessionID, &createdAt, &lastActivity, &summary, &sname)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("storage: get session: %w", err)
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Session{}, err
	}
	if s.LastActivity, err = parseTime(lastActivity); err != nil {
		return model.Session{}, err
	}
	s.ContextSummary = summary.String
	s.Name = sname.String
	return s, nil
}

// TouchSession bumps the durable last_activity timestamp.
func (db *DB) TouchSession(ctx context.Context, sessionID string, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE session_id = ?`,
		formatTime(now), sessionID,
	); err != nil {
		return fmt.Errorf("storage: touch session: %w", err)
	}
	return nil
}

// SetSessionName updates the human-readable session name.
func (db *DB) SetSessionName(ctx context.Context, sessionID, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.ExecContext(ctx,
		`UPDATE sessions SET session_name = ? WHERE session_id = ?`,
		name, sessionID,
	); err != nil {
		return fmt.Errorf("storage: set session name: %w", err)
	}
	return nil
}

// SetContextSummary persists the windowed conversation summary.
func (db *DB) SetContextSummary(ctx context.Context, sessionID, summary string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.ExecContext(ctx,
		`UPDATE sessions SET context_summary = ? WHERE session_id = ?`,
		summary, sessionID,
	); err != nil {
		return fmt.Errorf("storage: set context summary: %w", err)
	}
	return nil
}
