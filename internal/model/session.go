package model

import "time"

// Session is a conversation session. The in-memory session table is
// authoritative for liveness; the durable sessions row is authoritative for
// history and is never deleted automatically.
type Session struct {
	SessionID      string    `json:"session_id"`
	Name           string    `json:"session_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
	ContextSummary string    `json:"context_summary,omitempty"`
}
