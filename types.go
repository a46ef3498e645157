package hisho

import "time"

// SessionInfo is the public view of a live session.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
