// Package gemini provides a ModelProvider backed by the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/yungalgo/eliza"
)

const (
	defaultSmallModel     = "gemini-2.5-flash-lite"
	defaultMediumModel    = "gemini-2.5-flash"
	defaultLargeModel     = "gemini-2.5-pro"
	defaultEmbeddingModel = "gemini-embedding-001"
)

// Option configures the provider.
type Option func(*Provider)

// WithModel overrides the model used for a class.
func WithModel(class eliza.ModelClass, model string) Option {
	return func(p *Provider) {
		p.models[class] = model
	}
}

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(p *Provider) {
		p.embeddingModel = model
	}
}

// Provider implements eliza.ModelProvider over the Gemini API, mapping
// model classes to concrete Gemini models.
type Provider struct {
	client         *genai.Client
	models         map[eliza.ModelClass]string
	embeddingModel string
}

// New creates a provider. With an empty API key the client falls back to
// the GEMINI_API_KEY environment variable.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	p := &Provider{
		client: client,
		models: map[eliza.ModelClass]string{
			eliza.ModelClassSmall:  defaultSmallModel,
			eliza.ModelClassMedium: defaultMediumModel,
			eliza.ModelClassLarge:  defaultLargeModel,
		},
		embeddingModel: defaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) model(class eliza.ModelClass) string {
	if model, ok := p.models[class]; ok {
		return model
	}
	return p.models[eliza.ModelClassMedium]
}

// GenerateText completes the prompt with the model selected by the
// options' model class.
func (p *Provider) GenerateText(ctx context.Context, prompt string, opts ...eliza.ModelOption) (string, error) {
	options := eliza.ApplyModelOptions(opts...)
	config := &genai.GenerateContentConfig{}
	if options.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxOutputTokens)
	}
	if options.Temperature > 0 {
		temp := float32(options.Temperature)
		config.Temperature = &temp
	}
	if options.TopP > 0 {
		topP := float32(options.TopP)
		config.TopP = &topP
	}
	if len(options.Stop) > 0 {
		config.StopSequences = options.Stop
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model(options.Class), genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generating text: %w", err)
	}
	return resp.Text(), nil
}

// Embed returns the embedding vector for the text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := p.client.Models.EmbedContent(ctx, p.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding text: empty response")
	}
	return result.Embeddings[0].Values, nil
}
