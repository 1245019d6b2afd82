package eliza

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// State is the per-turn snapshot the decision-making caller reasons over.
// It is rebuilt on every turn and never persisted. Every formatted field is
// total: missing optional data degrades to the empty string. Raw *Data
// fields keep the unformatted records for programmatic reuse.
//
// A State is never mutated after ComposeState returns it; refresh
// operations derive a new State instead.
type State struct {
	AgentID    uuid.UUID
	AgentName  string
	RoomID     uuid.UUID
	SenderName string

	// System is the character's standing instruction, carried verbatim.
	System string

	// Character flavor, sampled per turn.
	Bio               string
	Lore              string
	Topic             string
	Adjective         string
	MessageDirections string
	PostDirections    string

	// Retrieved context.
	Knowledge          string
	KnowledgeData      []string
	Goals              string
	GoalsData          []*Goal
	Actors             string
	ActorsData         []*Actor
	RecentMessages     string
	RecentMessagesData []*Memory
	Attachments        string

	// Cross-room interactions between the sender and the agent.
	RecentMessageInteractions string
	RecentPostInteractions    string

	// Capability listings, filtered by per-turn validation.
	ActionNames       string
	Actions           string
	ActionExamples    string
	EvaluatorNames    string
	Evaluators        string
	EvaluatorExamples string
	Providers         string

	// Caller-supplied extra fields, carried through untouched.
	Extra map[string]any
}

// Clone returns a copy of the state with its slices and extra map detached.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	clone.KnowledgeData = slices.Clone(s.KnowledgeData)
	clone.GoalsData = slices.Clone(s.GoalsData)
	clone.ActorsData = slices.Clone(s.ActorsData)
	clone.RecentMessagesData = slices.Clone(s.RecentMessagesData)
	clone.Extra = maps.Clone(s.Extra)
	return &clone
}
