package eliza

import "context"

// ContextProvider contributes computed text to every turn's state. The
// composer concatenates all registered providers' output; a failing
// provider contributes nothing for that turn.
type ContextProvider interface {
	Provide(ctx context.Context, rt *Runtime, message *Memory, state *State) (string, error)
}

// ContextProviderFunc adapts a function to the ContextProvider interface.
type ContextProviderFunc func(ctx context.Context, rt *Runtime, message *Memory, state *State) (string, error)

// Provide calls the wrapped function.
func (f ContextProviderFunc) Provide(ctx context.Context, rt *Runtime, message *Memory, state *State) (string, error) {
	return f(ctx, rt, message, state)
}
