package model

import "fmt"

// Step is a single unit of work inside a plan. The Parallel flag and
// DependsOn hints come from the planner verbatim; execution order is governed
// solely by the plan's ParallelGroups, so DependsOn is advisory metadata.
type Step struct {
	ID          int            `json:"step_id"`
	Description string         `json:"description"`
	Action      Action         `json:"action"`
	Target      string         `json:"target"`
	Parameters  map[string]any `json:"parameters"`
	Parallel    bool           `json:"parallel"`
	DependsOn   []int          `json:"depends_on"`
}

// Plan is an ordered step list plus a concurrency schedule. Groups are
// consumed in declared order; steps inside one group run concurrently.
type Plan struct {
	Steps          []Step  `json:"steps"`
	ParallelGroups [][]int `json:"parallel_groups"`
}

// Validate checks the group/step invariant: every step id referenced by a
// parallel group must appear in the step list exactly once.
func (p Plan) Validate() error {
	seen := make(map[int]int, len(p.Steps))
	for _, s := range p.Steps {
		seen[s.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			return fmt.Errorf("plan: step id %d declared %d times", id, n)
		}
	}
	for gi, group := range p.ParallelGroups {
		for _, id := range group {
			if seen[id] == 0 {
				return fmt.Errorf("plan: group %d references unknown step id %d", gi, id)
			}
		}
	}
	return nil
}

// StepResult is the outcome of one executed step. Produced exactly once per
// step; aggregation preserves the canonical step-list order regardless of
// completion order.
type StepResult struct {
	StepID      int            `json:"step_id"`
	Description string         `json:"description"`
	Action      Action         `json:"action"`
	Target      string         `json:"target"`
	Parameters  map[string]any `json:"parameters"`
	Output      string         `json:"output"`
}
