package model

// Action is the closed set of decision kinds the brain can emit for a turn.
// Dispatch on Action is exhaustive — adding a kind means updating every
// switch the compiler flags, not a stray string comparison.
type Action string

const (
	ActionDirectResponse Action = "direct_response"
	ActionToolCall       Action = "tool_call"
	ActionFunctionCall   Action = "function_call"
	ActionPlanMode       Action = "plan_mode"
)

// Valid reports whether a is one of the four known decision kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionDirectResponse, ActionToolCall, ActionFunctionCall, ActionPlanMode:
		return true
	}
	return false
}

// Decision is one parsed brain output for a single user turn.
// Transient: produced fresh per turn, never persisted or shared across turns.
type Decision struct {
	Action     Action         `json:"action"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters"`
	Confidence float32        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}
