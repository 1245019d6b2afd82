package eliza

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Validator reports whether a capability applies to the current turn.
type Validator func(ctx context.Context, rt *Runtime, message *Memory, state *State) (bool, error)

// Handler executes a capability's effect for the current turn.
type Handler func(ctx context.Context, rt *Runtime, message *Memory, state *State) error

// ActionExample is one turn of an example exchange attached to an action.
type ActionExample struct {
	User    string   `json:"user"`
	Content *Content `json:"content"`
}

// Action is a capability the model may choose by name in its response. The
// decision-making caller proposes a free-text label; the runtime resolves
// it against Name and Similes under a forgiving normalization.
type Action struct {
	Name        string
	Similes     []string
	Description string
	Examples    [][]ActionExample
	Validate    Validator
	Handler     Handler
}

// normalizeLabel lower-cases a proposed action label and strips underscores
// so "CONTINUE", "continue" and "elaborate_further" style labels compare.
func normalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), "_", "")
}

// matchAction resolves a free-text label against registered actions: first
// a bidirectional substring match on names, then the same test over each
// action's similes. The first hit in registration order wins.
func matchAction(actions []*Action, label string) *Action {
	normalized := normalizeLabel(label)
	if normalized == "" {
		return nil
	}
	for _, action := range actions {
		name := normalizeLabel(action.Name)
		if strings.Contains(name, normalized) || strings.Contains(normalized, name) {
			return action
		}
	}
	for _, action := range actions {
		for _, simile := range action.Similes {
			name := normalizeLabel(simile)
			if strings.Contains(name, normalized) || strings.Contains(normalized, name) {
				return action
			}
		}
	}
	return nil
}

// ProcessActions resolves and executes the actions named by the proposed
// responses, sequentially in the order the caller listed them. Unresolvable
// labels are skipped with a diagnostic; a failing handler is logged and
// does not prevent subsequent actions from running.
func (r *Runtime) ProcessActions(ctx context.Context, message *Memory, responses []*Memory, state *State) {
	ctx = NewTurnContext(ctx, &TurnContext{Message: message, State: state})
	for _, response := range responses {
		if response == nil || response.Content == nil || response.Content.Action == "" {
			continue
		}
		action := matchAction(r.actions, response.Content.Action)
		if action == nil {
			r.logger.Warn("no action found for label, skipping",
				zap.String("action", response.Content.Action))
			continue
		}
		if action.Handler == nil {
			r.logger.Warn("action has no handler, skipping",
				zap.String("action", action.Name))
			continue
		}
		if err := action.Handler(ctx, r, message, state); err != nil {
			r.logger.Error("action handler failed",
				zap.String("action", action.Name), zap.Error(err))
		}
	}
}
