// Package router is the top-level conversational façade: it owns the
// per-turn control flow from raw user text to a reply. A turn ensures the
// session exists, records the user message, classifies the text (cheap
// rules first, then the model brain), executes the decision, and records
// the reply. Decision and execution failures become reply text; only the
// durable store failing surfaces as an error.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/hisho/internal/brain"
	"github.com/ashita-ai/hisho/internal/dispatch"
	"github.com/ashita-ai/hisho/internal/intent"
	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/plan"
	"github.com/ashita-ai/hisho/internal/session"
	"github.com/ashita-ai/hisho/internal/telemetry"
)

// Confirmer asks the user a blocking yes/no question before a destructive
// action runs. A false answer or an error cancels the action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Router drives one conversation turn end to end.
type Router struct {
	brain      *brain.Brain
	plan       *plan.Executor
	sessions   *session.Manager
	memory     *memory.Manager
	dispatcher dispatch.Dispatcher
	confirmer  Confirmer
	logger     *slog.Logger

	useRules bool
	logCalls bool
	gate     bool

	tracer trace.Tracer
	turns  metric.Int64Counter
}

// Options configures optional router behavior.
type Options struct {
	// UseRules enables the deterministic rule pre-pass. When every clause
	// of an utterance matches a rule, the model is never consulted.
	UseRules bool
	// LogToolCalls records every dispatched call durably.
	LogToolCalls bool
	// ConfirmDestructive gates needs_confirmation intents behind the
	// Confirmer. When disabled destructive calls run unprompted.
	ConfirmDestructive bool
}

// New wires the façade. confirmer may be nil when ConfirmDestructive is off.
func New(b *brain.Brain, p *plan.Executor, sessions *session.Manager, mem *memory.Manager, d dispatch.Dispatcher, confirmer Confirmer, logger *slog.Logger, opts Options) *Router {
	turns, _ := telemetry.Meter("hisho/router").Int64Counter("hisho.turns",
		metric.WithDescription("Conversation turns handled, by decision action."))
	return &Router{
		brain:      b,
		plan:       p,
		sessions:   sessions,
		memory:     mem,
		dispatcher: d,
		confirmer:  confirmer,
		logger:     logger,
		useRules:   opts.UseRules,
		logCalls:   opts.LogToolCalls,
		gate:       opts.ConfirmDestructive,
		tracer:     telemetry.Tracer("hisho/router"),
		turns:      turns,
	}
}

// HandleText processes one user utterance and returns the reply text.
// Classification, planning, and dispatch failures are folded into the reply;
// the returned error is reserved for the durable store failing.
func (r *Router) HandleText(ctx context.Context, sessionID, text string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "router.handle_text",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := r.ensureSession(ctx, sessionID); err != nil {
		return "", err
	}
	if err := r.memory.StoreMessage(ctx, sessionID, model.RoleUser, text, nil); err != nil {
		return "", fmt.Errorf("router: store user message: %w", err)
	}

	response, action := r.respond(ctx, sessionID, text)
	span.SetAttributes(attribute.String("decision.action", string(action)))
	r.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))

	meta := map[string]any{"action": string(action)}
	if err := r.memory.StoreMessage(ctx, sessionID, model.RoleAssistant, response, meta); err != nil {
		return "", fmt.Errorf("router: store assistant message: %w", err)
	}
	return response, nil
}

// ensureSession treats an id absent from the live cache as "create on first
// use": the in-memory record is rebuilt and the durable row is ensured, so
// an expired-and-evicted session silently resumes with its history intact.
func (r *Router) ensureSession(ctx context.Context, sessionID string) error {
	if _, ok := r.sessions.GetActive(sessionID); ok {
		r.sessions.Touch(sessionID)
		return nil
	}
	s := r.sessions.Create(sessionID, "")
	if err := r.memory.CreateSession(ctx, sessionID, s.Name); err != nil {
		return fmt.Errorf("router: create session: %w", err)
	}
	return nil
}

// respond picks and executes a decision path. Never returns an error: every
// failure inside becomes reply text.
func (r *Router) respond(ctx context.Context, sessionID, text string) (string, model.Action) {
	if r.useRules {
		if reply, ok := r.ruleRespond(ctx, sessionID, text); ok {
			return reply, model.ActionToolCall
		}
	}

	decision, err := r.brain.ParseIntent(ctx, text, sessionID)
	if err != nil {
		r.logger.Error("intent parse failed", "session_id", sessionID, "error", err)
		return fmt.Sprintf("I couldn't reach the language model: %v", err), model.ActionDirectResponse
	}

	switch decision.Action {
	case model.ActionDirectResponse:
		return decision.Target, decision.Action

	case model.ActionToolCall, model.ActionFunctionCall:
		return r.execute(ctx, sessionID, decision.Action, decision.Target, decision.Parameters), decision.Action

	case model.ActionPlanMode:
		result, err := r.plan.CreateAndExecute(ctx, text, sessionID)
		if err != nil {
			r.logger.Error("plan execution failed", "session_id", sessionID, "error", err)
			return fmt.Sprintf("I couldn't complete that plan: %v", err), decision.Action
		}
		return result, decision.Action
	}

	// Unreachable while parseResponse fails closed, kept for the compiler.
	return decision.Target, model.ActionDirectResponse
}

// ruleRespond runs the deterministic pre-pass. It only claims the turn when
// every clause matched a real rule; any llm_chat fallback hands the whole
// utterance to the brain instead.
func (r *Router) ruleRespond(ctx context.Context, sessionID, text string) (string, bool) {
	matches := intent.Route(text)
	for _, m := range matches {
		if m.Intent == intent.LLMChat {
			return "", false
		}
	}

	outputs := make([]string, 0, len(matches))
	for _, m := range matches {
		kind, target := dispatchTarget(m.Intent)
		outputs = append(outputs, r.execute(ctx, sessionID, kind, target, m.Params))
	}
	return strings.Join(outputs, "\n"), true
}

// execute dispatches one decided call and logs it durably when enabled.
func (r *Router) execute(ctx context.Context, sessionID string, kind model.Action, target string, params map[string]any) string {
	if needsConfirmation(params) && r.gate {
		ok, err := r.confirm(ctx, target, params)
		if err != nil {
			return fmt.Sprintf("Confirmation failed: %v", err)
		}
		if !ok {
			return "Cancelled."
		}
	}

	output, err := r.dispatcher.Dispatch(ctx, kind, target, params)
	success := err == nil
	if err != nil {
		r.logger.Warn("dispatch failed", "session_id", sessionID, "target", target, "error", err)
		output = fmt.Sprintf("Sorry, %s failed: %v", target, err)
	}

	if r.logCalls {
		if logErr := r.memory.LogToolExecution(ctx, model.ToolExecution{
			SessionID:  sessionID,
			ToolName:   target,
			Parameters: params,
			Result:     output,
			Success:    success,
		}); logErr != nil {
			r.logger.Warn("tool execution log failed", "session_id", sessionID, "error", logErr)
		}
	}
	return output
}

func (r *Router) confirm(ctx context.Context, target string, params map[string]any) (bool, error) {
	if r.confirmer == nil {
		return true, nil
	}
	prompt := fmt.Sprintf("About to run %s with %v. Proceed?", target, params)
	return r.confirmer.Confirm(ctx, prompt)
}

func needsConfirmation(params map[string]any) bool {
	v, _ := params["needs_confirmation"].(bool)
	return v
}

// dispatchTarget maps a rule-router intent onto the dispatcher's namespace:
// system state reads and settings are functions named as in the advertised
// catalog, everything else is a tool named after the intent itself.
func dispatchTarget(i intent.Intent) (model.Action, string) {
	switch i {
	case intent.SystemTime:
		return model.ActionFunctionCall, "get_current_time"
	case intent.SystemDate:
		return model.ActionFunctionCall, "get_current_date"
	case intent.Battery:
		return model.ActionFunctionCall, "get_battery_percentage"
	case intent.CPUUsage:
		return model.ActionFunctionCall, "get_cpu_usage"
	case intent.RAMUsage:
		return model.ActionFunctionCall, "get_ram_usage"
	case intent.ClipboardGet:
		return model.ActionFunctionCall, "get_clipboard"
	case intent.ClipboardSet:
		return model.ActionFunctionCall, "set_clipboard"
	case intent.OpenURL:
		return model.ActionFunctionCall, "open_url"
	case intent.Weather:
		return model.ActionFunctionCall, "get_weather"
	case intent.Joke:
		return model.ActionFunctionCall, "get_random_joke"
	default:
		return model.ActionToolCall, string(i)
	}
}
