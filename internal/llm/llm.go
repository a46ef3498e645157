// Package llm provides chat-completion clients for the language model
// backends the assistant can run against: OpenRouter's hosted API and a
// local Ollama instance. Both implement the same single-method Client
// interface so the brain and planner never care which backend answers.
package llm

import (
	"context"
	"time"
)

// Client sends one prompt to a language model and returns the raw text of
// its reply. Implementations must respect context cancellation.
type Client interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// perCallTimeout bounds a single model call. Separate from any caller
// context so one slow completion doesn't block an entire request.
const perCallTimeout = 30 * time.Second

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
