// Package plan generates and executes hierarchical plans for complex
// queries. The model proposes a step list plus a concurrency schedule;
// groups run one after another, steps inside a group run concurrently, and
// step failures are folded into the transcript rather than aborting the run.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/hisho/internal/brain"
	"github.com/ashita-ai/hisho/internal/dispatch"
	"github.com/ashita-ai/hisho/internal/llm"
	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/telemetry"
)

// Executor plans and runs multi-step tasks.
type Executor struct {
	llm        llm.Client
	brain      *brain.Brain
	dispatcher dispatch.Dispatcher
	memory     *memory.Manager
	logger     *slog.Logger
	logCalls   bool
	tracer     trace.Tracer
}

// New creates a plan executor. When logCalls is set, every dispatched step
// is recorded as a durable tool execution.
func New(client llm.Client, b *brain.Brain, d dispatch.Dispatcher, mem *memory.Manager, logger *slog.Logger, logCalls bool) *Executor {
	return &Executor{
		llm:        client,
		brain:      b,
		dispatcher: d,
		memory:     mem,
		logger:     logger,
		logCalls:   logCalls,
		tracer:     telemetry.Tracer("hisho/plan"),
	}
}

const planPrompt = `You are a task planner. The user has a complex request: %q

CONTEXT: %s

Create a detailed step-by-step plan. For each step, specify:
- Whether it can be executed in parallel with other steps
- The exact tool/function to use
- Required parameters

Return JSON format:
{
    "steps": [
        {
            "step_id": 1,
            "description": "What this step does",
            "action": "tool_call|function_call",
            "target": "tool_name|function_name",
            "parameters": {...},
            "parallel": false,
            "depends_on": []
        }
    ],
    "parallel_groups": [[1, 2], [3], [4, 5]]
}`

// CreateAndExecute plans the query, runs the plan, and returns the
// aggregated transcript. Unlike step failures, a plan that cannot be
// generated or parsed is a hard error.
func (e *Executor) CreateAndExecute(ctx context.Context, query, sessionID string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "plan.create_and_execute",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	p, err := e.generatePlan(ctx, query, sessionID)
	if err != nil {
		return "", err
	}
	span.SetAttributes(
		attribute.Int("plan.steps", len(p.Steps)),
		attribute.Int("plan.groups", len(p.ParallelGroups)),
	)

	results, err := e.executePlan(ctx, p, sessionID)
	if err != nil {
		return "", err
	}
	return aggregate(results), nil
}

// generatePlan asks the model for a plan and validates its shape.
func (e *Executor) generatePlan(ctx context.Context, query, sessionID string) (model.Plan, error) {
	bundle, err := e.brain.BuildContext(ctx, sessionID)
	if err != nil {
		return model.Plan{}, fmt.Errorf("plan: build context: %w", err)
	}
	bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return model.Plan{}, fmt.Errorf("plan: marshal context: %w", err)
	}

	response, err := e.llm.Query(ctx, fmt.Sprintf(planPrompt, query, bundleJSON))
	if err != nil {
		return model.Plan{}, fmt.Errorf("plan: query model: %w", err)
	}

	var p model.Plan
	if err := json.Unmarshal([]byte(response), &p); err != nil {
		return model.Plan{}, fmt.Errorf("plan: parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return model.Plan{}, err
	}

	e.logger.Info("plan generated",
		"session_id", sessionID,
		"steps", len(p.Steps),
		"groups", len(p.ParallelGroups))
	return p, nil
}

// executePlan runs the schedule. Groups run in declared order; steps inside
// a group run concurrently, each writing into its own pre-sized slot so no
// two goroutines ever share a result cell. A failed dispatch becomes the
// step's output text; only context cancellation aborts the run.
func (e *Executor) executePlan(ctx context.Context, p model.Plan, sessionID string) ([]model.StepResult, error) {
	steps := make(map[int]model.Step, len(p.Steps))
	for _, s := range p.Steps {
		steps[s.ID] = s
	}

	results := make(map[int]model.StepResult, len(p.Steps))
	for _, group := range p.ParallelGroups {
		slots := make([]model.StepResult, len(group))
		g, groupCtx := errgroup.WithContext(ctx)
		for idx, stepID := range group {
			step := steps[stepID]
			g.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				slots[idx] = e.runStep(groupCtx, step, sessionID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("plan: group aborted: %w", err)
		}
		for idx, stepID := range group {
			results[stepID] = slots[idx]
		}
	}

	// Canonical order: the step list, filtered to what actually ran.
	ordered := make([]model.StepResult, 0, len(results))
	for _, s := range p.Steps {
		if r, ok := results[s.ID]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// runStep dispatches one step and folds any dispatch error into the output.
func (e *Executor) runStep(ctx context.Context, step model.Step, sessionID string) model.StepResult {
	output, err := e.dispatcher.Dispatch(ctx, step.Action, step.Target, step.Parameters)
	if err != nil {
		e.logger.Warn("plan step failed",
			"session_id", sessionID,
			"step_id", step.ID,
			"target", step.Target,
			"error", err)
		output = fmt.Sprintf("Error: %v", err)
	}

	if e.logCalls {
		if logErr := e.memory.LogToolExecution(ctx, model.ToolExecution{
			SessionID:  sessionID,
			ToolName:   step.Target,
			Parameters: step.Parameters,
			Result:     output,
			Timestamp:  time.Now().UTC(),
			Success:    err == nil,
		}); logErr != nil {
			e.logger.Warn("tool execution log failed", "session_id", sessionID, "error", logErr)
		}
	}

	return model.StepResult{
		StepID:      step.ID,
		Description: step.Description,
		Action:      step.Action,
		Target:      step.Target,
		Parameters:  step.Parameters,
		Output:      output,
	}
}

// aggregate renders the step transcript. An empty result set renders as an
// empty string.
func aggregate(results []model.StepResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Step %d: %s\nOutput: %s", r.StepID, r.Description, r.Output))
	}
	return strings.Join(parts, "\n---\n")
}
