package eliza

import "context"

// TurnContext carries the current turn's message and snapshot so code
// called indirectly from a handler (services, nested helpers) can reach
// them without threading extra parameters.
type TurnContext struct {
	Message *Memory
	State   *State
}

// ctxTurnKey is an unexported type for keys defined in this package.
type ctxTurnKey struct{}

// NewTurnContext returns a new context carrying the turn.
func NewTurnContext(ctx context.Context, turn *TurnContext) context.Context {
	return context.WithValue(ctx, ctxTurnKey{}, turn)
}

// FromTurnContext retrieves the turn from the context, if present.
func FromTurnContext(ctx context.Context) (*TurnContext, bool) {
	turn, ok := ctx.Value(ctxTurnKey{}).(*TurnContext)
	return turn, ok
}
