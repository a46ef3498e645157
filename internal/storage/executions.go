package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ashita-ai/hisho/internal/model"
)

// LogToolExecution writes one durable tool invocation record.
// Records are write-once; there is no update path.
func (db *DB) LogToolExecution(ctx context.Context, e model.ToolExecution) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var params sql.NullString
	if e.Parameters != nil {
		raw, err := json.Marshal(e.Parameters)
		if err != nil {
			return fmt.Errorf("storage: marshal execution parameters: %w", err)
		}
		params = sql.NullString{String: string(raw), Valid: true}
	}

	if _, err := db.db.ExecContext(ctx,
		`INSERT INTO tool_executions (session_id, tool_name, parameters, result, timestamp, success)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.ToolName, params, e.Result, formatTime(e.Timestamp), e.Success,
	); err != nil {
		return fmt.Errorf("storage: log tool execution: %w", err)
	}
	return nil
}

// ToolExecutions returns all execution records for a session in insertion order.
func (db *DB) ToolExecutions(ctx context.Context, sessionID string) ([]model.ToolExecution, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT session_id, tool_name, parameters, result, timestamp, success
		 FROM tool_executions
		 WHERE session_id = ?
		 ORDER BY timestamp ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get tool executions: %w", err)
	}
	defer rows.Close()

	var out []model.ToolExecution
	for rows.Next() {
		var (
			e      model.ToolExecution
			params sql.NullString
			ts     string
		)
		if err := rows.Scan(&e.SessionID, &e.ToolName, &params, &e.Result, &ts, &e.Success); err != nil {
			return nil, fmt.Errorf("storage: scan tool execution: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if params.Valid {
			if err := json.Unmarshal([]byte(params.String), &e.Parameters); err != nil {
				return nil, fmt.Errorf("storage: unmarshal execution parameters: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
