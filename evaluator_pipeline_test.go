package eliza_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungalgo/eliza"
)

func alwaysValid(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
	return true, nil
}

func TestEvaluateGating(t *testing.T) {
	ctx := context.Background()
	model := &testModel{generate: func(prompt string) (string, error) {
		return `["REFLECT"]`, nil
	}}
	var ran []string
	rt := newTestRuntime(t,
		eliza.WithModelProvider(model),
		eliza.WithEvaluators(&eliza.Evaluator{
			Name:     "REFLECT",
			Validate: alwaysValid,
			Handler: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) error {
				ran = append(ran, "REFLECT")
				return nil
			},
		}),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})

	// No response this turn and the evaluator is not AlwaysRun: the model
	// must never be consulted.
	executed, err := rt.Evaluate(ctx, message, &eliza.State{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if executed != nil || model.calls != 0 || len(ran) != 0 {
		t.Fatalf("gated evaluator ran: executed=%v calls=%d", executed, model.calls)
	}

	executed, err = rt.Evaluate(ctx, message, &eliza.State{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 1 || executed[0] != "REFLECT" || len(ran) != 1 {
		t.Fatalf("executed=%v ran=%v", executed, ran)
	}
}

func TestEvaluateAlwaysRunBypassesGate(t *testing.T) {
	ctx := context.Background()
	model := &testModel{generate: func(prompt string) (string, error) {
		return `["AUDIT"]`, nil
	}}
	rt := newTestRuntime(t,
		eliza.WithModelProvider(model),
		eliza.WithEvaluators(&eliza.Evaluator{
			Name:      "AUDIT",
			AlwaysRun: true,
			Validate:  alwaysValid,
		}),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})
	executed, err := rt.Evaluate(ctx, message, &eliza.State{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 1 || executed[0] != "AUDIT" {
		t.Fatalf("executed=%v", executed)
	}
}

func TestEvaluateValidationFiltersCandidates(t *testing.T) {
	ctx := context.Background()
	var sawPrompt string
	model := &testModel{generate: func(prompt string) (string, error) {
		sawPrompt = prompt
		return `["APPLICABLE"]`, nil
	}}
	rt := newTestRuntime(t,
		eliza.WithModelProvider(model),
		eliza.WithEvaluators(
			&eliza.Evaluator{Name: "APPLICABLE", Description: "applies", Validate: alwaysValid},
			&eliza.Evaluator{
				Name: "NOT_APPLICABLE",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					return false, nil
				},
			},
			&eliza.Evaluator{
				Name: "FAILING",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					return false, errors.New("validator down")
				},
			},
		),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})
	executed, err := rt.Evaluate(ctx, message, &eliza.State{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 1 || executed[0] != "APPLICABLE" {
		t.Fatalf("executed=%v", executed)
	}
	if strings.Contains(sawPrompt, "NOT_APPLICABLE") || strings.Contains(sawPrompt, "FAILING") {
		t.Fatalf("filtered evaluators leaked into the selection prompt: %q", sawPrompt)
	}
}

func TestEvaluateSkipsUnknownSelection(t *testing.T) {
	ctx := context.Background()
	model := &testModel{generate: func(prompt string) (string, error) {
		return `["HALLUCINATED", "REAL"]`, nil
	}}
	var ran int
	rt := newTestRuntime(t,
		eliza.WithModelProvider(model),
		eliza.WithEvaluators(&eliza.Evaluator{
			Name:     "REAL",
			Validate: alwaysValid,
			Handler: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) error {
				ran++
				return nil
			},
		}),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})
	executed, err := rt.Evaluate(ctx, message, &eliza.State{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 1 || executed[0] != "REAL" || ran != 1 {
		t.Fatalf("executed=%v ran=%d", executed, ran)
	}
}

func TestEvaluateHandlerErrorIsolation(t *testing.T) {
	ctx := context.Background()
	model := &testModel{generate: func(prompt string) (string, error) {
		return `["FIRST", "SECOND"]`, nil
	}}
	var ran []string
	handler := func(name string, err error) eliza.Handler {
		return func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) error {
			ran = append(ran, name)
			return err
		}
	}
	rt := newTestRuntime(t,
		eliza.WithModelProvider(model),
		eliza.WithEvaluators(
			&eliza.Evaluator{Name: "FIRST", Validate: alwaysValid, Handler: handler("FIRST", errors.New("boom"))},
			&eliza.Evaluator{Name: "SECOND", Validate: alwaysValid, Handler: handler("SECOND", nil)},
		),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})
	executed, err := rt.Evaluate(ctx, message, &eliza.State{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 2 || len(ran) != 2 || ran[1] != "SECOND" {
		t.Fatalf("executed=%v ran=%v", executed, ran)
	}
}

func TestProcessActions(t *testing.T) {
	ctx := context.Background()
	var ran []string
	rt := newTestRuntime(t,
		eliza.WithActions(
			&eliza.Action{
				Name: "CONTINUE",
				Handler: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) error {
					if tc, ok := eliza.FromTurnContext(ctx); !ok || tc.Message != m {
						t.Error("turn context missing from handler context")
					}
					ran = append(ran, "CONTINUE")
					return errors.New("handler failed")
				},
			},
			&eliza.Action{
				Name: "FOLLOW_UP",
				Handler: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) error {
					ran = append(ran, "FOLLOW_UP")
					return nil
				},
			},
		),
	)
	message := eliza.NewMemory(rt.AgentID(), uuid.New(), uuid.New(), &eliza.Content{Text: "hi"})
	responses := []*eliza.Memory{
		{Content: &eliza.Content{Text: "a", Action: "continue"}},
		{Content: &eliza.Content{Text: "b", Action: "NO_SUCH_ACTION"}},
		{Content: &eliza.Content{Text: "c", Action: "follow_up"}},
		{Content: &eliza.Content{Text: "d"}},
	}
	rt.ProcessActions(ctx, message, responses, &eliza.State{})
	if len(ran) != 2 || ran[0] != "CONTINUE" || ran[1] != "FOLLOW_UP" {
		t.Fatalf("ran=%v", ran)
	}
}
