// Package memory manages the durable conversation log: per-session message
// history, bounded context windows for model prompts, and naive windowed
// summaries. It is the durability leaf under the session and brain layers.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/storage"
)

// DefaultWindow is the number of recent messages used when no explicit
// window size is given (context bundles and summaries).
const DefaultWindow = 10

// Manager persists conversation turns and session metadata.
type Manager struct {
	db     *storage.DB
	logger *slog.Logger
	window int
}

// NewManager creates a memory manager over the durable store.
// window <= 0 falls back to DefaultWindow.
func NewManager(db *storage.DB, logger *slog.Logger, window int) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Manager{db: db, logger: logger, window: window}
}

// CreateSession ensures a durable session row exists. An existing row is
// kept untouched — durable history is never reset by re-creation.
func (m *Manager) CreateSession(ctx context.Context, sessionID, name string) error {
	return m.db.CreateSession(ctx, sessionID, name, time.Now().UTC())
}

// StoreMessage appends one conversation turn. The session's durable
// last_activity is bumped as a side effect of the same write.
func (m *Manager) StoreMessage(ctx context.Context, sessionID string, role model.Role, content string, metadata map[string]any) error {
	return m.db.AppendMessage(ctx, model.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
}

// History returns the full message log for a session in insertion order.
func (m *Manager) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	return m.db.History(ctx, sessionID)
}

// ContextWindow formats the last maxMessages messages as "role: content"
// lines for inclusion in a model prompt. Nothing is persisted.
func (m *Manager) ContextWindow(ctx context.Context, sessionID string, maxMessages int) (string, error) {
	if maxMessages <= 0 {
		maxMessages = m.window
	}
	history, err := m.db.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("memory: context window: %w", err)
	}
	return formatWindow(history, maxMessages), nil
}

// SummarizeSession produces the naive windowed summary (last window messages
// formatted as "role: content" lines), persists it into the session's
// context_summary field, and returns it. No model call is involved.
func (m *Manager) SummarizeSession(ctx context.Context, sessionID string) (string, error) {
	history, err := m.db.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("memory: summarize session: %w", err)
	}
	summary := formatWindow(history, m.window)
	if err := m.db.SetContextSummary(ctx, sessionID, summary); err != nil {
		return "", fmt.Errorf("memory: persist summary: %w", err)
	}
	return summary, nil
}

// ClearSession discards the message log for a session. The session row and
// its tool execution records are kept.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	return m.db.ClearSession(ctx, sessionID)
}

// SessionInfo returns the durable session metadata.
func (m *Manager) SessionInfo(ctx context.Context, sessionID string) (model.Session, error) {
	return m.db.GetSession(ctx, sessionID)
}

// ToolExecutions returns the durable tool invocation log for a session in
// insertion order.
func (m *Manager) ToolExecutions(ctx context.Context, sessionID string) ([]model.ToolExecution, error) {
	return m.db.ToolExecutions(ctx, sessionID)
}

// LogToolExecution writes a durable record of one tool invocation.
func (m *Manager) LogToolExecution(ctx context.Context, e model.ToolExecution) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return m.db.LogToolExecution(ctx, e)
}

func formatWindow(history []model.Message, maxMessages int) string {
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
