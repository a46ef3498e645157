package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hisho/internal/model"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.RegisterTool("read_file", func(_ context.Context, params map[string]any) (string, error) {
		return "contents of " + params["query"].(string), nil
	})
	r.RegisterFunction("system_time", func(_ context.Context, _ map[string]any) (string, error) {
		return "12:00", nil
	})

	out, err := r.Dispatch(context.Background(), model.ActionToolCall, "read_file", map[string]any{"query": "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "contents of a.txt", out)

	out, err = r.Dispatch(context.Background(), model.ActionFunctionCall, "system_time", nil)
	require.NoError(t, err)
	assert.Equal(t, "12:00", out)
}

func TestRegistryDispatchUnknownTarget(t *testing.T) {
	r := NewRegistry()

	_, err := r.Dispatch(context.Background(), model.ActionToolCall, "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no tool_call handler for target "nope"`)
}

func TestRegistryKindsAreSeparate(t *testing.T) {
	r := NewRegistry()
	r.RegisterTool("shared_name", func(_ context.Context, _ map[string]any) (string, error) {
		return "tool", nil
	})

	_, err := r.Dispatch(context.Background(), model.ActionFunctionCall, "shared_name", nil)
	require.Error(t, err)
}

func TestRegistryTargets(t *testing.T) {
	r := NewRegistry()
	r.RegisterTool("b", func(_ context.Context, _ map[string]any) (string, error) { return "", nil })
	r.RegisterTool("a", func(_ context.Context, _ map[string]any) (string, error) { return "", nil })

	assert.Equal(t, []string{"a", "b"}, r.Targets(model.ActionToolCall))
	assert.Empty(t, r.Targets(model.ActionFunctionCall))
}

func TestFuncAdapter(t *testing.T) {
	var d Dispatcher = Func(func(_ context.Context, kind model.Action, target string, _ map[string]any) (string, error) {
		return string(kind) + ":" + target, nil
	})

	out, err := d.Dispatch(context.Background(), model.ActionToolCall, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "tool_call:x", out)
}
