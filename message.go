package eliza

import (
	"time"

	"github.com/google/uuid"
)

// Media describes an attachment carried by a message: an image, a link
// preview, a transcribed file, and so on. Text holds the descriptive text
// that re-enters prompts; it is the only field the composer may redact.
type Media struct {
	ID          string   `json:"id"`
	URL         string   `json:"url,omitempty"`
	Title       string   `json:"title,omitempty"`
	Source      string   `json:"source,omitempty"`
	Description string   `json:"description,omitempty"`
	Text        string   `json:"text,omitempty"`
	ContentType MIMEType `json:"contentType,omitempty"`
}

// Content is the payload of a Memory: the text itself plus optional
// structured companions (an action name chosen by the model, attachments,
// the source platform, a reply reference).
type Content struct {
	Text        string     `json:"text"`
	Action      string     `json:"action,omitempty"`
	Source      string     `json:"source,omitempty"`
	URL         string     `json:"url,omitempty"`
	InReplyTo   *uuid.UUID `json:"inReplyTo,omitempty"`
	Attachments []*Media   `json:"attachments,omitempty"`
}

// Memory is a stored, timestamped record of conversational content scoped
// to a room. Records are immutable once created; the composer may redact
// attachment text on its in-memory copies but never writes that back.
type Memory struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agentId"`
	UserID    uuid.UUID `json:"userId"`
	RoomID    uuid.UUID `json:"roomId"`
	Content   *Content  `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Unique    bool      `json:"unique,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMemory creates a Memory with a fresh random identity and the current
// timestamp.
func NewMemory(agentID, userID, roomID uuid.UUID, content *Content) *Memory {
	return &Memory{
		ID:        uuid.New(),
		AgentID:   agentID,
		UserID:    userID,
		RoomID:    roomID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy of the memory. The composer clones before
// applying the attachment visibility window so redaction never touches
// records owned by the store.
func (m *Memory) Clone() *Memory {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Content != nil {
		content := *m.Content
		if len(m.Content.Attachments) > 0 {
			content.Attachments = make([]*Media, len(m.Content.Attachments))
			for i, a := range m.Content.Attachments {
				attachment := *a
				content.Attachments[i] = &attachment
			}
		}
		clone.Content = &content
	}
	if len(m.Embedding) > 0 {
		clone.Embedding = append([]float32(nil), m.Embedding...)
	}
	return &clone
}

// Account is a known user of the agent, owned by the external store.
type Account struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Username string         `json:"username"`
	Email    string         `json:"email,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Actor is the projection of an account used when formatting conversation
// participants into state.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Details  string    `json:"details,omitempty"`
}

// GoalStatus tracks the lifecycle of a goal.
type GoalStatus string

const (
	GoalStatusInProgress GoalStatus = "IN_PROGRESS"
	GoalStatusDone       GoalStatus = "DONE"
	GoalStatusFailed     GoalStatus = "FAILED"
)

// Objective is a single step of a goal.
type Objective struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Goal is an in-progress intention the agent tracks for a room, owned by
// the external store and surfaced into each turn's state.
type Goal struct {
	ID         uuid.UUID    `json:"id"`
	RoomID     uuid.UUID    `json:"roomId"`
	UserID     uuid.UUID    `json:"userId"`
	Name       string       `json:"name"`
	Status     GoalStatus   `json:"status"`
	Objectives []*Objective `json:"objectives"`
	CreatedAt  time.Time    `json:"createdAt"`
}
