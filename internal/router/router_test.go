package router

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hisho/internal/brain"
	"github.com/ashita-ai/hisho/internal/dispatch"
	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/plan"
	"github.com/ashita-ai/hisho/internal/session"
	"github.com/ashita-ai/hisho/internal/storage"
	"github.com/ashita-ai/hisho/migrations"
)

// seqLLM replays canned replies in order, one per Query call.
type seqLLM struct {
	replies []string
	calls   int
}

func (s *seqLLM) Query(_ context.Context, _ string) (string, error) {
	if s.calls >= len(s.replies) {
		return "", errors.New("unexpected model call")
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

type fixture struct {
	router   *Router
	sessions *session.Manager
	memory   *memory.Manager
	llm      *seqLLM
}

func newFixture(t *testing.T, llm *seqLLM, d dispatch.Dispatcher, confirmer Confirmer, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.New(ctx, ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(ctx, migrations.FS))

	mem := memory.NewManager(db, slog.Default(), 0)
	sessions := session.NewManager(0)
	b := brain.New(llm, mem, sessions, slog.Default())
	p := plan.New(llm, b, d, mem, slog.Default(), opts.LogToolCalls)

	return &fixture{
		router:   New(b, p, sessions, mem, d, confirmer, slog.Default(), opts),
		sessions: sessions,
		memory:   mem,
		llm:      llm,
	}
}

func TestHandleTextDirectResponse(t *testing.T) {
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "direct_response", "target": "Hello! How can I help?", "confidence": 0.9}`,
	}}, dispatch.NewRegistry(), nil, Options{})
	ctx := context.Background()

	reply, err := f.router.HandleText(ctx, "sess-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)

	history, err := f.memory.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Equal(t, reply, history[1].Content)
	assert.Equal(t, "direct_response", history[1].Metadata["action"])
}

func TestHandleTextCreatesSessionOnFirstUse(t *testing.T) {
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "direct_response", "target": "ok", "confidence": 1}`,
	}}, dispatch.NewRegistry(), nil, Options{})

	_, ok := f.sessions.GetActive("sess-1")
	assert.False(t, ok)

	_, err := f.router.HandleText(context.Background(), "sess-1", "hi")
	require.NoError(t, err)

	s, ok := f.sessions.GetActive("sess-1")
	require.True(t, ok)
	assert.Equal(t, "Session-sess-1", s.Name)
}

func TestHandleTextToolCall(t *testing.T) {
	reg := dispatch.NewRegistry()
	reg.RegisterTool("read_file", func(_ context.Context, params map[string]any) (string, error) {
		return "file says: " + params["query"].(string), nil
	})
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "tool_call", "target": "read_file", "parameters": {"query": "a.txt"}, "confidence": 0.8}`,
	}}, reg, nil, Options{LogToolCalls: true})
	ctx := context.Background()

	reply, err := f.router.HandleText(ctx, "sess-1", "read a.txt")
	require.NoError(t, err)
	assert.Equal(t, "file says: a.txt", reply)

	execs, err := f.memory.ToolExecutions(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "read_file", execs[0].ToolName)
	assert.True(t, execs[0].Success)
}

func TestHandleTextDispatchFailureBecomesReply(t *testing.T) {
	reg := dispatch.NewRegistry()
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "tool_call", "target": "missing_tool", "parameters": {}, "confidence": 0.8}`,
	}}, reg, nil, Options{})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "do the thing")
	require.NoError(t, err)
	assert.Contains(t, reply, "missing_tool failed")
}

func TestHandleTextConfirmationDenied(t *testing.T) {
	dispatched := false
	d := dispatch.Func(func(_ context.Context, _ model.Action, _ string, _ map[string]any) (string, error) {
		dispatched = true
		return "deleted", nil
	})
	confirmer := ConfirmerFunc(func(_ context.Context, _ string) (bool, error) {
		return false, nil
	})
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "tool_call", "target": "delete_file", "parameters": {"query": "x", "needs_confirmation": true}, "confidence": 0.9}`,
	}}, d, confirmer, Options{ConfirmDestructive: true})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "delete x")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled.", reply)
	assert.False(t, dispatched)
}

func TestHandleTextConfirmationGranted(t *testing.T) {
	d := dispatch.Func(func(_ context.Context, _ model.Action, _ string, _ map[string]any) (string, error) {
		return "deleted", nil
	})
	confirmer := ConfirmerFunc(func(_ context.Context, prompt string) (bool, error) {
		assert.Contains(t, prompt, "delete_file")
		return true, nil
	})
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "tool_call", "target": "delete_file", "parameters": {"needs_confirmation": true}, "confidence": 0.9}`,
	}}, d, confirmer, Options{ConfirmDestructive: true})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "delete x")
	require.NoError(t, err)
	assert.Equal(t, "deleted", reply)
}

func TestHandleTextPlanMode(t *testing.T) {
	d := dispatch.Func(func(_ context.Context, _ model.Action, target string, _ map[string]any) (string, error) {
		return "ran " + target, nil
	})
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "plan_mode", "target": "plan_request", "confidence": 0.9}`,
		`{"steps": [
			{"step_id": 1, "description": "first", "action": "tool_call", "target": "a", "parameters": {}},
			{"step_id": 2, "description": "second", "action": "tool_call", "target": "b", "parameters": {}}
		], "parallel_groups": [[1], [2]]}`,
	}}, d, nil, Options{})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "do two things in sequence")
	require.NoError(t, err)
	assert.Contains(t, reply, "Step 1: first\nOutput: ran a")
	assert.Contains(t, reply, "Step 2: second\nOutput: ran b")
}

func TestHandleTextPlanFailureBecomesReply(t *testing.T) {
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "plan_mode", "target": "plan_request", "confidence": 0.9}`,
		`not a plan`,
	}}, dispatch.NewRegistry(), nil, Options{})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "do something complex")
	require.NoError(t, err)
	assert.Contains(t, reply, "I couldn't complete that plan")
}

func TestHandleTextRulePrePassSkipsModel(t *testing.T) {
	reg := dispatch.NewRegistry()
	reg.RegisterFunction("get_current_time", func(_ context.Context, _ map[string]any) (string, error) {
		return "09:26", nil
	})
	llm := &seqLLM{} // any model call fails the test
	f := newFixture(t, llm, reg, nil, Options{UseRules: true})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "what time is it")
	require.NoError(t, err)
	assert.Equal(t, "09:26", reply)
	assert.Zero(t, llm.calls)
}

func TestHandleTextRulePrePassFallsThroughToModel(t *testing.T) {
	f := newFixture(t, &seqLLM{replies: []string{
		`{"action": "direct_response", "target": "from the model", "confidence": 1}`,
	}}, dispatch.NewRegistry(), nil, Options{UseRules: true})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "tell me something interesting")
	require.NoError(t, err)
	assert.Equal(t, "from the model", reply)
}

func TestHandleTextCompoundRuleCommand(t *testing.T) {
	reg := dispatch.NewRegistry()
	reg.RegisterTool("read_file", func(_ context.Context, params map[string]any) (string, error) {
		return "read: " + params["query"].(string), nil
	})
	reg.RegisterTool("launch_app", func(_ context.Context, params map[string]any) (string, error) {
		return "launched: " + params["query"].(string), nil
	})
	f := newFixture(t, &seqLLM{}, reg, nil, Options{UseRules: true})

	reply, err := f.router.HandleText(context.Background(), "sess-1", "read file.txt and launch notepad")
	require.NoError(t, err)
	assert.Equal(t, "read: read file.txt\nlaunched: launch notepad", reply)
}
