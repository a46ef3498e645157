// Package dispatch routes decided tool and function calls to their
// implementations. The orchestration layers decide WHAT to run; a
// Dispatcher owns HOW a target name maps onto real side effects, which
// keeps device access out of the decision path entirely.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ashita-ai/hisho/internal/model"
)

// Dispatcher executes one decided call. kind is either ActionToolCall or
// ActionFunctionCall; target names the capability.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind model.Action, target string, params map[string]any) (string, error)
}

// Func adapts a plain function to the Dispatcher interface.
type Func func(ctx context.Context, kind model.Action, target string, params map[string]any) (string, error)

func (f Func) Dispatch(ctx context.Context, kind model.Action, target string, params map[string]any) (string, error) {
	return f(ctx, kind, target, params)
}

// Handler implements a single named capability.
type Handler func(ctx context.Context, params map[string]any) (string, error)

// Registry is a Dispatcher backed by two name-keyed handler tables, one per
// call kind. Registration is expected at startup; Dispatch may run from
// concurrent plan steps.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Handler
	functions map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Handler),
		functions: make(map[string]Handler),
	}
}

// RegisterTool binds a tool target name to its handler.
func (r *Registry) RegisterTool(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = h
}

// RegisterFunction binds a function target name to its handler.
func (r *Registry) RegisterFunction(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = h
}

// Targets returns the registered names for one call kind, sorted.
func (r *Registry) Targets(kind model.Action) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := r.table(kind)
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) table(kind model.Action) map[string]Handler {
	switch kind {
	case model.ActionToolCall:
		return r.tools
	case model.ActionFunctionCall:
		return r.functions
	}
	return nil
}

func (r *Registry) Dispatch(ctx context.Context, kind model.Action, target string, params map[string]any) (string, error) {
	r.mu.RLock()
	h, ok := r.table(kind)[target]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("dispatch: no %s handler for target %q", kind, target)
	}
	return h(ctx, params)
}
