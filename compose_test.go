package eliza_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungalgo/eliza"
	"github.com/yungalgo/eliza/memory"
)

// failingGoals wraps the in-memory adapter with a goal lookup that always
// fails, to exercise the store-failure path.
type failingGoals struct {
	*memory.Adapter
}

func (f *failingGoals) GetGoals(ctx context.Context, query eliza.GoalQuery) ([]*eliza.Goal, error) {
	return nil, errors.New("store down")
}

// staticKnowledge is a canned retriever.
type staticKnowledge struct {
	items []string
	err   error
}

func (k *staticKnowledge) Retrieve(ctx context.Context, message *eliza.Memory, count int) ([]string, error) {
	return k.items, k.err
}

func seedConversation(t *testing.T, ctx context.Context, rt *eliza.Runtime, adapter *memory.Adapter) (userID, roomID uuid.UUID, message *eliza.Memory) {
	t.Helper()
	userID = uuid.New()
	roomID = uuid.New()
	if err := rt.EnsureConnection(ctx, userID, roomID, "Sam", "sam"); err != nil {
		t.Fatal(err)
	}
	earlier := eliza.NewMemory(rt.AgentID(), userID, roomID, &eliza.Content{Text: "I have been feeling stuck lately."})
	earlier.CreatedAt = time.Now().Add(-time.Minute)
	if err := rt.Messages().CreateMemory(ctx, earlier, false); err != nil {
		t.Fatal(err)
	}
	message = eliza.NewMemory(rt.AgentID(), userID, roomID, &eliza.Content{Text: "What should I do about it?"})
	if err := rt.Messages().CreateMemory(ctx, message, false); err != nil {
		t.Fatal(err)
	}
	if err := adapter.CreateGoal(ctx, &eliza.Goal{
		ID:     uuid.New(),
		RoomID: roomID,
		UserID: userID,
		Name:   "Figure out next steps",
		Status: eliza.GoalStatusInProgress,
	}); err != nil {
		t.Fatal(err)
	}
	return userID, roomID, message
}

func TestComposeState(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	rt := newTestRuntime(t,
		eliza.WithDatabaseAdapter(adapter),
		eliza.WithRand(rand.New(rand.NewSource(1))),
		eliza.WithActions(
			&eliza.Action{
				Name:        "CONTINUE",
				Description: "keep going",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					return true, nil
				},
			},
			&eliza.Action{
				Name: "IGNORE",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					return false, nil
				},
			},
			&eliza.Action{
				Name: "BROKEN",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					return false, errors.New("validator crashed")
				},
			},
			&eliza.Action{
				Name: "PANICS",
				Validate: func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (bool, error) {
					panic("boom")
				},
			},
		),
		eliza.WithContextProviders(eliza.ContextProviderFunc(
			func(ctx context.Context, rt *eliza.Runtime, m *eliza.Memory, s *eliza.State) (string, error) {
				return "The current time is noon.", nil
			},
		)),
	)
	rt.RegisterKnowledge(&staticKnowledge{items: []string{"The sky is blue."}})

	_, roomID, message := seedConversation(t, ctx, rt, adapter)

	state, err := rt.ComposeState(ctx, message, map[string]any{"channel": "cli"})
	if err != nil {
		t.Fatal(err)
	}
	if state.AgentName != "Eliza" || state.RoomID != roomID {
		t.Fatalf("identity: %+v", state)
	}
	if state.SenderName != "Sam" {
		t.Fatalf("sender: %q", state.SenderName)
	}
	if state.System != "You are a thoughtful conversational partner." {
		t.Fatalf("system: %q", state.System)
	}
	if !strings.Contains(state.RecentMessages, "Sam: I have been feeling stuck lately.") {
		t.Fatalf("recent messages: %q", state.RecentMessages)
	}
	if !strings.Contains(state.Goals, "Figure out next steps") {
		t.Fatalf("goals: %q", state.Goals)
	}
	if !strings.Contains(state.Knowledge, "The sky is blue.") {
		t.Fatalf("knowledge: %q", state.Knowledge)
	}
	if state.ActionNames != "CONTINUE" {
		t.Fatalf("only validated actions belong in the listing: %q", state.ActionNames)
	}
	if state.Providers != "The current time is noon." {
		t.Fatalf("providers: %q", state.Providers)
	}
	if state.Extra["channel"] != "cli" {
		t.Fatalf("extra: %+v", state.Extra)
	}
	if state.Bio == "" || state.MessageDirections == "" {
		t.Fatalf("character fields empty: %+v", state)
	}
}

func TestComposeStateKnowledgeFailureDegrades(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	rt := newTestRuntime(t, eliza.WithDatabaseAdapter(adapter))
	rt.RegisterKnowledge(&staticKnowledge{err: errors.New("engine down")})

	_, _, message := seedConversation(t, ctx, rt, adapter)
	state, err := rt.ComposeState(ctx, message, nil)
	if err != nil {
		t.Fatalf("knowledge failure must not fail the turn: %v", err)
	}
	if state.Knowledge != "" {
		t.Fatalf("expected empty knowledge, got %q", state.Knowledge)
	}
}

func TestComposeStateStoreFailureFailsTurn(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	rt := newTestRuntime(t, eliza.WithDatabaseAdapter(&failingGoals{Adapter: adapter}))

	userID := uuid.New()
	roomID := uuid.New()
	if err := rt.EnsureConnection(ctx, userID, roomID, "Sam", "sam"); err != nil {
		t.Fatal(err)
	}
	message := eliza.NewMemory(rt.AgentID(), userID, roomID, &eliza.Content{Text: "hello"})
	if _, err := rt.ComposeState(ctx, message, nil); err == nil {
		t.Fatal("store failure must fail the turn")
	}
}

func TestUpdateRecentMessageState(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	rt := newTestRuntime(t, eliza.WithDatabaseAdapter(adapter))

	userID, roomID, message := seedConversation(t, ctx, rt, adapter)
	state, err := rt.ComposeState(ctx, message, nil)
	if err != nil {
		t.Fatal(err)
	}

	later := eliza.NewMemory(rt.AgentID(), userID, roomID, &eliza.Content{Text: "Actually, never mind."})
	later.CreatedAt = time.Now().Add(time.Second)
	if err := rt.Messages().CreateMemory(ctx, later, false); err != nil {
		t.Fatal(err)
	}

	next, err := rt.UpdateRecentMessageState(ctx, state)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(next.RecentMessages, "Actually, never mind.") {
		t.Fatalf("refreshed state missing new message: %q", next.RecentMessages)
	}
	if strings.Contains(state.RecentMessages, "Actually, never mind.") {
		t.Fatal("input state must not be mutated")
	}
	if next.SenderName != state.SenderName || next.Bio != state.Bio {
		t.Fatal("non-message fields must carry over")
	}
}
