package hisho

import "context"

// LLM is the language model query interface: one prompt in, raw reply text
// out. Synchronous, no streaming. The default implementation is picked from
// configuration (OpenRouter or a local Ollama instance); embedders replace
// it with WithLLM.
type LLM interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Dispatcher executes one decided tool or function call. kind is
// "tool_call" or "function_call"; target names the capability; params carry
// the extracted arguments. The orchestration core never implements device
// access itself — embedders supply the dispatch table.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind, target string, params map[string]any) (string, error)
}

// Confirmer asks the user a blocking yes/no question before a destructive
// action runs. Returning false, or an error, cancels the action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}
