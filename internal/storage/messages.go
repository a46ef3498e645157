package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ashita-ai/hisho/internal/model"
)

// AppendMessage inserts a message and bumps the session's durable
// last_activity in one transaction. Messages are append-only; there is no
// update or delete path for an individual row.
func (db *DB) AppendMessage(ctx context.Context, m model.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var metadata sql.NullString
	if m.Metadata != nil {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("storage: marshal message metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin append message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		m.SessionID, string(m.Role), m.Content, formatTime(m.Timestamp), metadata,
	); err != nil {
		return fmt.Errorf("storage: insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE session_id = ?`,
		formatTime(m.Timestamp), m.SessionID,
	); err != nil {
		return fmt.Errorf("storage: bump session activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit append message: %w", err)
	}
	return nil
}

// History returns all messages for a session in insertion order
// (timestamp ascending, row id as tiebreaker).
func (db *DB) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT session_id, role, content, timestamp, metadata
		 FROM messages
		 WHERE session_id = ?
		 ORDER BY timestamp ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get history: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var (
			m        model.Message
			role     string
			ts       string
			metadata sql.NullString
		)
		if err := rows.Scan(&m.SessionID, &role, &m.Content, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("storage: scan message: %w", err)
		}
		m.Role = model.Role(role)
		if m.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("storage: unmarshal message metadata: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearSession deletes all messages for a session. The session row itself
// is kept; only the conversation log is discarded.
func (db *DB) ClearSession(ctx context.Context, sessionID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("storage: clear session: %w", err)
	}
	return nil
}
