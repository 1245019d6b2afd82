package eliza

import "go.uber.org/zap"

// NewLogger builds the runtime's standard zap logger: production encoding
// by default, development encoding when debug is set. Library consumers
// that already have a logger pass it through WithLogger instead.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
