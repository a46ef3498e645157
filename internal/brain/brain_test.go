package brain

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/session"
	"github.com/ashita-ai/hisho/internal/storage"
	"github.com/ashita-ai/hisho/migrations"
)

// stubLLM returns a canned reply and records the last prompt it was given.
type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Query(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func newTestBrain(t *testing.T, client *stubLLM) (*Brain, *memory.Manager, *session.Manager) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.New(ctx, ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(ctx, migrations.FS))

	mem := memory.NewManager(db, slog.Default(), 0)
	sessions := session.NewManager(0)
	return New(client, mem, sessions, slog.Default()), mem, sessions
}

func TestParseIntentStructuredDecision(t *testing.T) {
	client := &stubLLM{reply: `{
		"action": "tool_call",
		"target": "read_file",
		"parameters": {"query": "notes.txt"},
		"confidence": 0.9,
		"reasoning": "User asked to read a file"
	}`}
	b, mem, sessions := newTestBrain(t, client)
	ctx := context.Background()

	sessions.Create("sess-1", "")
	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))
	require.NoError(t, mem.StoreMessage(ctx, "sess-1", model.RoleUser, "read notes.txt", nil))

	d, err := b.ParseIntent(ctx, "read notes.txt", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionToolCall, d.Action)
	assert.Equal(t, "read_file", d.Target)
	assert.Equal(t, "notes.txt", d.Parameters["query"])
	assert.InDelta(t, 0.9, d.Confidence, 0.001)

	// The prompt carries the context bundle and the raw query.
	assert.Contains(t, client.prompt, `"read notes.txt"`)
	assert.Contains(t, client.prompt, "available_tools")
	assert.Contains(t, client.prompt, "read_file")
}

func TestParseIntentMalformedReplyDegrades(t *testing.T) {
	client := &stubLLM{reply: "I think you should just open the file yourself."}
	b, mem, _ := newTestBrain(t, client)
	ctx := context.Background()

	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))

	d, err := b.ParseIntent(ctx, "do something", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionDirectResponse, d.Action)
	assert.Equal(t, client.reply, d.Target)
	assert.Empty(t, d.Parameters)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
	assert.Equal(t, "Failed to parse structured response", d.Reasoning)
}

func TestParseIntentUnknownActionDegrades(t *testing.T) {
	client := &stubLLM{reply: `{"action": "self_destruct", "target": "x"}`}
	b, mem, _ := newTestBrain(t, client)
	ctx := context.Background()

	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))

	d, err := b.ParseIntent(ctx, "do something", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionDirectResponse, d.Action)
	assert.Equal(t, client.reply, d.Target)
}

func TestParseIntentConfidenceOutOfRangeDegrades(t *testing.T) {
	client := &stubLLM{reply: `{"action": "tool_call", "target": "read_file", "confidence": 7.3}`}
	b, mem, _ := newTestBrain(t, client)
	ctx := context.Background()

	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))

	d, err := b.ParseIntent(ctx, "read config.yaml", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionDirectResponse, d.Action)
	assert.Equal(t, client.reply, d.Target)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
}

func TestParseIntentStripsCodeFences(t *testing.T) {
	client := &stubLLM{reply: "```json\n{\"action\": \"direct_response\", \"target\": \"hello\", \"confidence\": 1}\n```"}
	b, mem, _ := newTestBrain(t, client)
	ctx := context.Background()

	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))

	d, err := b.ParseIntent(ctx, "hi", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionDirectResponse, d.Action)
	assert.Equal(t, "hello", d.Target)
}

func TestBuildContextWindowsHistory(t *testing.T) {
	client := &stubLLM{}
	b, mem, sessions := newTestBrain(t, client)
	ctx := context.Background()

	sessions.Create("sess-1", "Morning")
	require.NoError(t, mem.CreateSession(ctx, "sess-1", "Morning"))
	for i := 0; i < 15; i++ {
		require.NoError(t, mem.StoreMessage(ctx, "sess-1", model.RoleUser, "msg", nil))
	}

	bundle, err := b.BuildContext(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, bundle.ConversationHistory, memory.DefaultWindow)
	assert.Equal(t, "Morning", bundle.SessionContext["session_name"])
	assert.Equal(t, possibleOutputs, bundle.PossibleOutputs)
}

func TestBuildContextMissingSession(t *testing.T) {
	client := &stubLLM{}
	b, mem, _ := newTestBrain(t, client)
	ctx := context.Background()

	require.NoError(t, mem.CreateSession(ctx, "sess-1", ""))

	bundle, err := b.BuildContext(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, bundle.SessionContext)
}
