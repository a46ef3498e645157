// Package brain turns a user query plus conversation context into a single
// structured decision: answer directly, call a tool or function, or escalate
// to plan mode. The model's reply is parsed fail-closed, so a malformed
// reply degrades into a direct response carrying the raw text instead of
// surfacing an error to the caller.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashita-ai/hisho/internal/llm"
	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/session"
)

// Bundle is the context snapshot serialized into every brain and planner
// prompt. Field names are part of the prompt surface.
type Bundle struct {
	ConversationHistory []model.Message   `json:"conversation_history"`
	AvailableTools      map[string]string `json:"available_tools"`
	AvailableFunctions  map[string]string `json:"available_functions"`
	PossibleOutputs     []string          `json:"possible_outputs"`
	SessionContext      map[string]any    `json:"session_context"`
}

// Brain decides what to do with one user turn.
type Brain struct {
	llm      llm.Client
	memory   *memory.Manager
	sessions *session.Manager
	logger   *slog.Logger
}

// New creates a brain over the given model client, durable memory, and
// in-memory session cache.
func New(client llm.Client, mem *memory.Manager, sessions *session.Manager, logger *slog.Logger) *Brain {
	return &Brain{llm: client, memory: mem, sessions: sessions, logger: logger}
}

const brainPrompt = `You are the brain of a personal assistant. You have access to all tools and functions.

CONTEXT:
%s

USER QUERY: %q

TASK: Analyze the query and decide what to do. Return a JSON response with:
{
    "action": "tool_call|function_call|direct_response|plan_mode",
    "target": "tool_name|function_name|response_text|plan_request",
    "parameters": {...},
    "confidence": 0.95,
    "reasoning": "Why this action was chosen"
}

If the query is too complex, set action to "plan_mode".`

// ParseIntent asks the model for a decision about one user query. Only
// context assembly and transport errors are returned; a reply the model got
// wrong is absorbed into a degraded direct_response decision.
func (b *Brain) ParseIntent(ctx context.Context, userQuery, sessionID string) (model.Decision, error) {
	bundle, err := b.BuildContext(ctx, sessionID)
	if err != nil {
		return model.Decision{}, fmt.Errorf("brain: build context: %w", err)
	}

	bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return model.Decision{}, fmt.Errorf("brain: marshal context: %w", err)
	}

	response, err := b.llm.Query(ctx, fmt.Sprintf(brainPrompt, bundleJSON, userQuery))
	if err != nil {
		return model.Decision{}, fmt.Errorf("brain: query model: %w", err)
	}

	decision := b.parseResponse(response)
	b.logger.Debug("brain decision",
		"session_id", sessionID,
		"action", decision.Action,
		"target", decision.Target,
		"confidence", decision.Confidence)
	return decision, nil
}

// BuildContext assembles the prompt context bundle: the last few turns of
// history, both catalogs, the decision kinds, and live session metadata.
func (b *Brain) BuildContext(ctx context.Context, sessionID string) (Bundle, error) {
	history, err := b.memory.History(ctx, sessionID)
	if err != nil {
		return Bundle{}, err
	}
	if len(history) > memory.DefaultWindow {
		history = history[len(history)-memory.DefaultWindow:]
	}

	sessionContext := map[string]any{}
	if s, ok := b.sessions.GetActive(sessionID); ok {
		sessionContext["session_id"] = s.SessionID
		sessionContext["session_name"] = s.Name
		sessionContext["created_at"] = s.CreatedAt
		sessionContext["last_activity"] = s.LastActivity
	}

	return Bundle{
		ConversationHistory: history,
		AvailableTools:      toolCatalog,
		AvailableFunctions:  functionCatalog,
		PossibleOutputs:     possibleOutputs,
		SessionContext:      sessionContext,
	}, nil
}

// parseResponse decodes a model reply into a Decision. Anything that fails
// to decode, decodes to an unknown action, or carries a confidence outside
// [0, 1] degrades to a direct_response carrying the raw reply at half
// confidence.
func (b *Brain) parseResponse(response string) model.Decision {
	var d model.Decision
	if err := json.Unmarshal([]byte(stripFences(response)), &d); err == nil && d.Action.Valid() && d.Confidence >= 0 && d.Confidence <= 1 {
		if d.Parameters == nil {
			d.Parameters = map[string]any{}
		}
		return d
	}

	return model.Decision{
		Action:     model.ActionDirectResponse,
		Target:     response,
		Parameters: map[string]any{},
		Confidence: 0.5,
		Reasoning:  "Failed to parse structured response",
	}
}

// stripFences removes a surrounding markdown code fence, which chat models
// often wrap JSON replies in.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
