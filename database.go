package eliza

import (
	"context"

	"github.com/google/uuid"
)

// Memory partitions. Each partition is an independently addressable named
// store sharing the DatabaseAdapter contract; the runtime creates one
// MemoryManager per partition at startup.
const (
	TableMessages     = "messages"
	TableDescriptions = "descriptions"
	TableLore         = "lore"
	TableDocuments    = "documents"
	TableFragments    = "fragments"
)

// MemoryQuery bounds a recent-memory lookup within a room partition.
type MemoryQuery struct {
	RoomID uuid.UUID
	Count  int
	Unique bool
}

// SearchParams controls an embedding-similarity search. MatchThreshold is
// a cosine-similarity lower bound; Count caps the ranked result set. When
// AgentID is non-nil the search is further scoped to that agent's records.
type SearchParams struct {
	RoomID         uuid.UUID
	AgentID        *uuid.UUID
	MatchThreshold float64
	Count          int
	Unique         bool
}

// GoalQuery bounds a goal lookup.
type GoalQuery struct {
	RoomID      uuid.UUID
	UserID      *uuid.UUID
	OnlyPending bool
	Count       int
}

// DatabaseAdapter is the persistent store the runtime is a client of. It
// owns accounts, rooms, participants, goals, and every memory partition.
// Implementations must order GetMemories results most recent first and
// rank SearchMemoriesByEmbedding by similarity with ties broken by recency.
type DatabaseAdapter interface {
	// Accounts, rooms, participants.
	GetAccountByID(ctx context.Context, userID uuid.UUID) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, bool, error)
	CreateRoom(ctx context.Context, roomID uuid.UUID) error
	GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
	AddParticipant(ctx context.Context, userID, roomID uuid.UUID) error
	GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
	GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]*Actor, error)

	// Memories, partitioned by table name.
	CreateMemory(ctx context.Context, table string, memory *Memory, unique bool) error
	GetMemoryByID(ctx context.Context, table string, id uuid.UUID) (*Memory, error)
	GetMemories(ctx context.Context, table string, query MemoryQuery) ([]*Memory, error)
	GetMemoriesByRoomIDs(ctx context.Context, table string, roomIDs []uuid.UUID, limit int) ([]*Memory, error)
	SearchMemoriesByEmbedding(ctx context.Context, table string, embedding []float32, params SearchParams) ([]*Memory, error)
	GetCachedEmbeddings(ctx context.Context, table string, text string) ([][]float32, error)
	RemoveMemory(ctx context.Context, table string, id uuid.UUID) error
	RemoveAllMemories(ctx context.Context, table string, roomID uuid.UUID) error

	// Goals.
	GetGoals(ctx context.Context, query GoalQuery) ([]*Goal, error)
	CreateGoal(ctx context.Context, goal *Goal) error
	UpdateGoal(ctx context.Context, goal *Goal) error
}
