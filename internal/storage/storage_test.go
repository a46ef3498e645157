package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/migrations"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := New(ctx, ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(ctx, migrations.FS))
	return db
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// A second run must skip already-applied files without error.
	require.NoError(t, db.RunMigrations(context.Background(), migrations.FS))
}

func TestCreateAndGetSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "Morning", now))

	s, err := db.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionID)
	assert.Equal(t, "Morning", s.Name)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.LastActivity)
	assert.Empty(t, s.ContextSummary)
}

func TestGetSession_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateSession_ExistingRowIsKept(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "first", now))
	require.NoError(t, db.CreateSession(ctx, "sess-1", "second", now.Add(time.Hour)))

	// The durable row is never reset by a re-create; only the in-memory
	// session table has last-writer-wins semantics.
	s, err := db.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Name)
	assert.Equal(t, now, s.CreatedAt)
}

func TestAppendMessage_HistoryOrderAndRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "", base))
	require.NoError(t, db.AppendMessage(ctx, model.Message{
		SessionID: "sess-1",
		Role:      model.RoleUser,
		Content:   "read notes.txt",
		Timestamp: base.Add(time.Second),
		Metadata:  map[string]any{"source": "voice"},
	}))
	require.NoError(t, db.AppendMessage(ctx, model.Message{
		SessionID: "sess-1",
		Role:      model.RoleAssistant,
		Content:   "here you go",
		Timestamp: base.Add(2 * time.Second),
	}))

	history, err := db.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "read notes.txt", history[0].Content)
	assert.Equal(t, map[string]any{"source": "voice"}, history[0].Metadata)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Nil(t, history[1].Metadata)
}

func TestAppendMessage_BumpsLastActivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "", base))
	require.NoError(t, db.AppendMessage(ctx, model.Message{
		SessionID: "sess-1",
		Role:      model.RoleUser,
		Content:   "hello",
		Timestamp: base.Add(time.Minute),
	}))

	s, err := db.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute), s.LastActivity)
}

func TestClearSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "", base))
	require.NoError(t, db.AppendMessage(ctx, model.Message{
		SessionID: "sess-1", Role: model.RoleUser, Content: "hello", Timestamp: base,
	}))
	require.NoError(t, db.ClearSession(ctx, "sess-1"))

	history, err := db.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// The session row survives a clear.
	_, err = db.GetSession(ctx, "sess-1")
	require.NoError(t, err)
}

func TestSetContextSummaryAndName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateSession(ctx, "sess-1", "", base))
	require.NoError(t, db.SetContextSummary(ctx, "sess-1", "user: hello"))
	require.NoError(t, db.SetSessionName(ctx, "sess-1", "Renamed"))

	s, err := db.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user: hello", s.ContextSummary)
	assert.Equal(t, "Renamed", s.Name)
}

func TestToolExecutions_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.LogToolExecution(ctx, model.ToolExecution{
		SessionID:  "sess-1",
		ToolName:   "search_files",
		Parameters: map[string]any{"query": "notes"},
		Result:     "2 matches",
		Timestamp:  base,
		Success:    true,
	}))
	require.NoError(t, db.LogToolExecution(ctx, model.ToolExecution{
		SessionID: "sess-1",
		ToolName:  "read_file",
		Result:    "permission denied",
		Timestamp: base.Add(time.Second),
		Success:   false,
	}))

	execs, err := db.ToolExecutions(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, execs, 2)

	assert.Equal(t, "search_files", execs[0].ToolName)
	assert.Equal(t, map[string]any{"query": "notes"}, execs[0].Parameters)
	assert.True(t, execs[0].Success)
	assert.Equal(t, "read_file", execs[1].ToolName)
	assert.False(t, execs[1].Success)
}
