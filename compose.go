package eliza

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// attachmentVisibilityWindow bounds how long raw attachment text keeps
	// re-entering prompts, measured back from the most recent message that
	// carries attachments.
	attachmentVisibilityWindow = time.Hour
	// attachmentHiddenText replaces attachment text outside the window.
	attachmentHiddenText = "[Hidden]"

	// knowledgeCount is how many knowledge excerpts a turn asks for.
	knowledgeCount = 5
	// interactionsLimit bounds the cross-room interaction lookup.
	interactionsLimit = 20
	// goalsCount bounds the pending-goal lookup.
	goalsCount = 10
	// sampleCount bounds the bio and lore excerpts sampled per turn.
	sampleCount = 10
)

// ComposeState assembles the immutable per-turn snapshot for an inbound
// message: recent conversation, goals, actors, knowledge, and validated
// capability listings, gathered with parallel fan-out and merged once.
// Store failures fail the turn; knowledge, provider, and capability
// validation failures degrade to absence.
func (r *Runtime) ComposeState(ctx context.Context, message *Memory, extra map[string]any) (*State, error) {
	var (
		actors    []*Actor
		recent    []*Memory
		goals     []*Goal
		knowledge []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actors, err = r.adapter.GetActorDetails(gctx, message.RoomID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = r.Messages().GetMemories(gctx, MemoryQuery{
			RoomID: message.RoomID,
			Count:  r.conversationLength,
		})
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = r.adapter.GetGoals(gctx, GoalQuery{
			RoomID:      message.RoomID,
			OnlyPending: true,
			Count:       goalsCount,
		})
		return err
	})
	g.Go(func() error {
		if r.knowledge == nil {
			return nil
		}
		items, err := r.knowledge.Retrieve(gctx, message, knowledgeCount)
		if err != nil {
			// Knowledge unavailability never fails a turn.
			r.logger.Warn("knowledge retrieval failed, continuing without", zap.Error(err))
			return nil
		}
		knowledge = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recent = redactStaleAttachments(recent)

	messageInteractions, postInteractions, err := r.recentInteractions(ctx, message.UserID, actors)
	if err != nil {
		return nil, err
	}

	character := r.character
	state := &State{
		AgentID:    r.agentID,
		AgentName:  character.Name,
		RoomID:     message.RoomID,
		SenderName: actorName(actors, message.UserID),
		System:     character.System,

		Bio:               joinNonEmpty(r.sample(character.Bio, sampleCount), " "),
		Lore:              joinNonEmpty(r.sample(character.Lore, sampleCount), "\n"),
		Topic:             r.pick(character.Topics),
		Adjective:         r.pick(character.Adjectives),
		MessageDirections: joinNonEmpty(append(append([]string{}, character.Style.All...), character.Style.Chat...), "\n"),
		PostDirections:    joinNonEmpty(append(append([]string{}, character.Style.All...), character.Style.Post...), "\n"),

		Knowledge:          formatKnowledge(knowledge),
		KnowledgeData:      knowledge,
		Goals:              formatGoals(goals),
		GoalsData:          goals,
		Actors:             formatActors(actors),
		ActorsData:         actors,
		RecentMessages:     formatMessages(recent, actors),
		RecentMessagesData: recent,
		Attachments:        formatAttachments(recent),

		RecentMessageInteractions: messageInteractions,
		RecentPostInteractions:    postInteractions,

		Extra: extra,
	}

	r.validateCapabilities(ctx, message, state)
	return state, nil
}

// UpdateRecentMessageState derives a new snapshot from an existing one with
// only the recent-message fields refreshed. The input state is not touched.
func (r *Runtime) UpdateRecentMessageState(ctx context.Context, state *State) (*State, error) {
	recent, err := r.Messages().GetMemories(ctx, MemoryQuery{
		RoomID: state.RoomID,
		Count:  r.conversationLength,
	})
	if err != nil {
		return nil, err
	}
	recent = redactStaleAttachments(recent)
	next := state.Clone()
	next.RecentMessages = formatMessages(recent, state.ActorsData)
	next.RecentMessagesData = recent
	next.Attachments = formatAttachments(recent)
	return next, nil
}

// validateCapabilities runs every action's and evaluator's Validate and
// every provider's Provide against the draft snapshot in parallel, then
// fills the capability-listing fields with the survivors. A failing or
// panicking plugin is unavailable for this turn, nothing more.
func (r *Runtime) validateCapabilities(ctx context.Context, message *Memory, state *State) {
	var (
		wg            sync.WaitGroup
		actionOK      = make([]bool, len(r.actions))
		evaluatorOK   = make([]bool, len(r.evaluators))
		providerTexts = make([]string, len(r.providers))
	)
	validate := func(name string, v Validator, ok *bool) {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("capability validation panicked", zap.String("capability", name), zap.Any("panic", rec))
			}
		}()
		if v == nil {
			return
		}
		valid, err := v(ctx, r, message, state)
		if err != nil {
			r.logger.Warn("capability validation failed, unavailable this turn",
				zap.String("capability", name), zap.Error(err))
			return
		}
		*ok = valid
	}
	for i, action := range r.actions {
		wg.Add(1)
		go validate(action.Name, action.Validate, &actionOK[i])
	}
	for i, evaluator := range r.evaluators {
		wg.Add(1)
		go validate(evaluator.Name, evaluator.Validate, &evaluatorOK[i])
	}
	for i, provider := range r.providers {
		wg.Add(1)
		go func(i int, provider ContextProvider) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("context provider panicked", zap.Any("panic", rec))
				}
			}()
			text, err := provider.Provide(ctx, r, message, state)
			if err != nil {
				r.logger.Warn("context provider failed, skipped this turn", zap.Error(err))
				return
			}
			providerTexts[i] = text
		}(i, provider)
	}
	wg.Wait()

	var validActions []*Action
	for i, action := range r.actions {
		if actionOK[i] {
			validActions = append(validActions, action)
		}
	}
	var validEvaluators []*Evaluator
	for i, evaluator := range r.evaluators {
		if evaluatorOK[i] {
			validEvaluators = append(validEvaluators, evaluator)
		}
	}
	state.ActionNames = formatActionNames(validActions)
	state.Actions = formatActions(validActions)
	state.ActionExamples = formatActionExamples(validActions)
	state.EvaluatorNames = formatEvaluatorNames(validEvaluators)
	state.Evaluators = formatEvaluators(validEvaluators)
	state.EvaluatorExamples = formatEvaluatorExamples(validEvaluators)
	state.Providers = joinNonEmpty(providerTexts, "\n")
}

// recentInteractions looks up recent exchanges between the sender and the
// agent across every room they share, formatted both as a chat transcript
// and as posts.
func (r *Runtime) recentInteractions(ctx context.Context, senderID uuid.UUID, actors []*Actor) (string, string, error) {
	if senderID == r.agentID {
		return "", "", nil
	}
	rooms, err := r.adapter.GetRoomsForParticipants(ctx, []uuid.UUID{senderID, r.agentID})
	if err != nil {
		return "", "", err
	}
	if len(rooms) == 0 {
		return "", "", nil
	}
	interactions, err := r.Messages().GetMemoriesByRoomIDs(ctx, rooms, interactionsLimit)
	if err != nil {
		return "", "", err
	}
	return formatMessages(interactions, actors), formatPosts(interactions, actors), nil
}

// redactStaleAttachments applies the attachment visibility window: with the
// most recent attachment-bearing message as the reference, any attachment
// on a message more than an hour older has its text fields replaced with a
// placeholder. Messages are cloned; store-owned records stay untouched.
func redactStaleAttachments(messages []*Memory) []*Memory {
	var reference *Memory
	for _, m := range messages { // most recent first
		if m.Content != nil && len(m.Content.Attachments) > 0 {
			reference = m
			break
		}
	}
	if reference == nil {
		return messages
	}
	cutoff := reference.CreatedAt.Add(-attachmentVisibilityWindow)
	out := make([]*Memory, len(messages))
	for i, m := range messages {
		if m.Content == nil || len(m.Content.Attachments) == 0 || !m.CreatedAt.Before(cutoff) {
			out[i] = m
			continue
		}
		clone := m.Clone()
		for _, attachment := range clone.Content.Attachments {
			attachment.Text = attachmentHiddenText
			attachment.Description = attachmentHiddenText
		}
		out[i] = clone
	}
	return out
}

// joinNonEmpty joins the non-empty items with sep; an all-empty input
// yields "".
func joinNonEmpty(items []string, sep string) string {
	var out []string
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, sep)
}
