package eliza

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EvaluationExample is a worked example attached to an evaluator, used when
// the model prioritizes among applicable evaluators.
type EvaluationExample struct {
	Context  string          `json:"context"`
	Messages []ActionExample `json:"messages"`
	Outcome  string          `json:"outcome"`
}

// Evaluator is a post-turn assessment capability. Evaluators with AlwaysRun
// are considered on every turn; the rest only on turns that produced a
// response.
type Evaluator struct {
	Name        string
	Similes     []string
	Description string
	AlwaysRun   bool
	Examples    []EvaluationExample
	Validate    Validator
	Handler     Handler
}

// defaultEvaluationTemplate asks the model to pick which applicable
// evaluators to run. Characters may override it under the
// "evaluationTemplate" key.
const defaultEvaluationTemplate = `TASK: Based on the conversation and conditions, determine which evaluation functions are appropriate to call.
Examples:
{{.EvaluatorExamples}}

INSTRUCTIONS: You are helping me to decide which evaluation functions to call.

Recent conversation:
{{.RecentMessages}}

Evaluator Functions:
{{.Evaluators}}

Based on these conditions, which evaluation functions are appropriate to call?
Respond with a JSON array of the names of the evaluators to call.`

// Evaluate runs the post-turn evaluator pipeline: every eligible
// evaluator's Validate runs in parallel, the model selects among the
// candidates, and the selected handlers run sequentially with per-handler
// error isolation. With zero candidates the model is never consulted and
// an empty result is returned.
func (r *Runtime) Evaluate(ctx context.Context, message *Memory, state *State, didRespond bool) ([]string, error) {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []*Evaluator
	)
	for _, evaluator := range r.evaluators {
		if !evaluator.AlwaysRun && !didRespond {
			continue
		}
		if evaluator.Validate == nil {
			continue
		}
		wg.Add(1)
		go func(evaluator *Evaluator) {
			defer wg.Done()
			ok, err := evaluator.Validate(ctx, r, message, state)
			if err != nil {
				r.logger.Warn("evaluator validation failed, treating as not applicable",
					zap.String("evaluator", evaluator.Name), zap.Error(err))
				return
			}
			if ok {
				mu.Lock()
				candidates = append(candidates, evaluator)
				mu.Unlock()
			}
		}(evaluator)
	}
	wg.Wait()
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt, err := r.evaluationPrompt(state, candidates)
	if err != nil {
		return nil, err
	}
	selected, err := NewOutputConverter[[]string](r.model).Generate(ctx, prompt, WithModelClass(ModelClassSmall))
	if err != nil {
		return nil, err
	}

	ctx = NewTurnContext(ctx, &TurnContext{Message: message, State: state})
	var executed []string
	for _, name := range selected {
		evaluator := findEvaluator(candidates, name)
		if evaluator == nil {
			r.logger.Warn("model selected unknown evaluator, skipping", zap.String("evaluator", name))
			continue
		}
		executed = append(executed, evaluator.Name)
		if evaluator.Handler == nil {
			continue
		}
		if err := evaluator.Handler(ctx, r, message, state); err != nil {
			r.logger.Error("evaluator handler failed",
				zap.String("evaluator", evaluator.Name), zap.Error(err))
		}
	}
	return executed, nil
}

// evaluationPrompt formats the candidate set into the evaluation template.
func (r *Runtime) evaluationPrompt(state *State, candidates []*Evaluator) (string, error) {
	draft := state.Clone()
	if draft == nil {
		draft = &State{}
	}
	draft.EvaluatorNames = formatEvaluatorNames(candidates)
	draft.Evaluators = formatEvaluators(candidates)
	draft.EvaluatorExamples = formatEvaluatorExamples(candidates)
	tmpl := r.template("evaluationTemplate", defaultEvaluationTemplate)
	return ComposeContext(draft, tmpl)
}

func findEvaluator(evaluators []*Evaluator, name string) *Evaluator {
	normalized := normalizeLabel(name)
	for _, evaluator := range evaluators {
		if normalizeLabel(evaluator.Name) == normalized {
			return evaluator
		}
	}
	return nil
}
