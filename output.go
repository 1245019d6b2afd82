package eliza

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// OutputConverter wraps a ModelProvider so its output conforms to a
// specified type T using JSON schema validation.
type OutputConverter[T any] struct {
	model ModelProvider
}

// NewOutputConverter creates an OutputConverter over the given provider.
func NewOutputConverter[T any](model ModelProvider) *OutputConverter[T] {
	return &OutputConverter[T]{model: model}
}

// Generate sends the prompt with schema instructions prepended and parses
// the response into T.
func (o *OutputConverter[T]) Generate(ctx context.Context, prompt string, opts ...ModelOption) (T, error) {
	var result T
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return result, err
	}
	b, err := schema.MarshalJSON()
	if err != nil {
		return result, err
	}
	buf := strings.Builder{}
	buf.WriteString(`Your response should be in JSON format.
Do not include any explanations, only provide a RFC8259 compliant JSON response following this format without deviation.
Do not include markdown code blocks in your response.
Here is the JSON Schema instance your output must adhere to:
`)
	buf.WriteString(string(b))
	buf.WriteString("\n\n")
	buf.WriteString(prompt)
	text, err := o.model.GenerateText(ctx, buf.String(), opts...)
	if err != nil {
		return result, err
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &result); err != nil {
		return result, err
	}
	return result, nil
}
