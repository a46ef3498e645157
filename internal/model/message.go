package model

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Messages are append-only and are never
// mutated after insertion; ordering is by timestamp ascending.
type Message struct {
	SessionID string         `json:"session_id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToolExecution is the durable record of a single tool invocation.
// Written once when execution logging is enabled, read-only afterward.
type ToolExecution struct {
	SessionID  string         `json:"session_id"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     string         `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
	Success    bool           `json:"success"`
}
