package eliza

import "context"

// ModelClass selects a provider model tier for a generation request.
// Evaluator selection uses ModelClassSmall; callers pick larger tiers for
// response drafting.
type ModelClass string

const (
	ModelClassSmall  ModelClass = "small"
	ModelClassMedium ModelClass = "medium"
	ModelClassLarge  ModelClass = "large"
)

// ModelOption configures a single generation request. Providers may ignore
// options they do not support but should prefer best-effort behavior.
type ModelOption func(*ModelOptions)

// ModelOptions holds common request-time controls.
type ModelOptions struct {
	Class           ModelClass
	MaxOutputTokens int64
	Temperature     float64
	TopP            float64
	Stop            []string
}

// WithModelClass sets the model tier for the request.
func WithModelClass(class ModelClass) ModelOption {
	return func(o *ModelOptions) {
		o.Class = class
	}
}

// WithMaxOutputTokens sets the maximum number of tokens to generate.
func WithMaxOutputTokens(n int64) ModelOption {
	return func(o *ModelOptions) {
		o.MaxOutputTokens = n
	}
}

// WithTemperature sets the sampling temperature, between 0.0 and 1.0.
func WithTemperature(t float64) ModelOption {
	return func(o *ModelOptions) {
		o.Temperature = t
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(p float64) ModelOption {
	return func(o *ModelOptions) {
		o.TopP = p
	}
}

// WithStop sets stop sequences for the request.
func WithStop(stop ...string) ModelOption {
	return func(o *ModelOptions) {
		o.Stop = stop
	}
}

// ApplyModelOptions folds request options into a ModelOptions value, for
// providers translating them to their native request types.
func ApplyModelOptions(opts ...ModelOption) ModelOptions {
	options := ModelOptions{Class: ModelClassMedium}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// ModelProvider is the text-generation and embedding collaborator the
// runtime is a client of.
type ModelProvider interface {
	// GenerateText executes the request and returns the assistant text.
	GenerateText(ctx context.Context, prompt string, opts ...ModelOption) (string, error)
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
