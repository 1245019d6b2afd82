package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungalgo/eliza"
)

func TestAccountsAndRooms(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()

	userID := uuid.New()
	require.NoError(t, adapter.CreateAccount(ctx, &eliza.Account{ID: userID, Name: "Sam", Username: "sam"}))
	account, err := adapter.GetAccountByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "Sam", account.Name)

	missing, err := adapter.GetAccountByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	roomID := uuid.New()
	_, ok, err := adapter.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, adapter.CreateRoom(ctx, roomID))
	_, ok, err = adapter.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParticipants(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()

	alice := uuid.New()
	bob := uuid.New()
	shared := uuid.New()
	private := uuid.New()
	require.NoError(t, adapter.AddParticipant(ctx, alice, shared))
	require.NoError(t, adapter.AddParticipant(ctx, bob, shared))
	require.NoError(t, adapter.AddParticipant(ctx, alice, private))

	rooms, err := adapter.GetRoomsForParticipants(ctx, []uuid.UUID{alice, bob})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, shared, rooms[0])

	aliceRooms, err := adapter.GetParticipantsForAccount(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, aliceRooms, 2)
}

func TestActorDetails(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()

	roomID := uuid.New()
	known := uuid.New()
	unknown := uuid.New()
	require.NoError(t, adapter.CreateAccount(ctx, &eliza.Account{ID: known, Name: "Alice", Username: "alice"}))
	require.NoError(t, adapter.AddParticipant(ctx, known, roomID))
	require.NoError(t, adapter.AddParticipant(ctx, unknown, roomID))

	actors, err := adapter.GetActorDetails(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "Alice", actors[0].Name)
	assert.Equal(t, "Unknown User", actors[1].Name)
}

func memoryAt(roomID uuid.UUID, text string, at time.Time, embedding []float32) *eliza.Memory {
	return &eliza.Memory{
		ID:        uuid.New(),
		RoomID:    roomID,
		Content:   &eliza.Content{Text: text},
		Embedding: embedding,
		CreatedAt: at,
	}
}

func TestMemoriesRecentFirst(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()
	now := time.Now()

	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(roomID, "oldest", now.Add(-2*time.Minute), nil), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(roomID, "newest", now, nil), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(roomID, "middle", now.Add(-time.Minute), nil), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(uuid.New(), "other room", now, nil), false))

	memories, err := adapter.GetMemories(ctx, eliza.TableMessages, eliza.MemoryQuery{RoomID: roomID, Count: 2})
	require.NoError(t, err)
	require.Len(t, memories, 2)
	assert.Equal(t, "newest", memories[0].Content.Text)
	assert.Equal(t, "middle", memories[1].Content.Text)
}

func TestCreateMemoryUnique(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()

	m := memoryAt(roomID, "once", time.Now(), nil)
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableDocuments, m, true))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableDocuments, m, true))

	memories, err := adapter.GetMemories(ctx, eliza.TableDocuments, eliza.MemoryQuery{RoomID: roomID})
	require.NoError(t, err)
	assert.Len(t, memories, 1)
}

func TestUniqueScopedQueries(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()
	now := time.Now()

	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "deduped", now, []float32{1, 0}), true))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "plain", now, []float32{1, 0}), false))

	memories, err := adapter.GetMemories(ctx, eliza.TableFragments, eliza.MemoryQuery{RoomID: roomID, Unique: true})
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "deduped", memories[0].Content.Text)
	assert.True(t, memories[0].Unique)

	results, err := adapter.SearchMemoriesByEmbedding(ctx, eliza.TableFragments, []float32{1, 0}, eliza.SearchParams{
		RoomID: roomID,
		Count:  10,
		Unique: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "deduped", results[0].Content.Text)
}

func TestSearchMemoriesByEmbedding(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()
	now := time.Now()

	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "exact", now, []float32{1, 0, 0}), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "close", now, []float32{0.9, 0.1, 0}), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "orthogonal", now, []float32{0, 1, 0}), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "unembedded", now, nil), false))

	results, err := adapter.SearchMemoriesByEmbedding(ctx, eliza.TableFragments, []float32{1, 0, 0}, eliza.SearchParams{
		RoomID:         roomID,
		MatchThreshold: 0.5,
		Count:          10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Content.Text)
	assert.Equal(t, "close", results[1].Content.Text)
}

func TestRemoveMemories(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()

	m := memoryAt(roomID, "ephemeral", time.Now(), nil)
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, m, false))
	require.NoError(t, adapter.RemoveMemory(ctx, eliza.TableMessages, m.ID))
	got, err := adapter.GetMemoryByID(ctx, eliza.TableMessages, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(roomID, "a", time.Now(), nil), false))
	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableMessages, memoryAt(roomID, "b", time.Now(), nil), false))
	require.NoError(t, adapter.RemoveAllMemories(ctx, eliza.TableMessages, roomID))
	memories, err := adapter.GetMemories(ctx, eliza.TableMessages, eliza.MemoryQuery{RoomID: roomID})
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestGetCachedEmbeddings(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()

	require.NoError(t, adapter.CreateMemory(ctx, eliza.TableFragments, memoryAt(roomID, "known text", time.Now(), []float32{1, 2}), false))
	vectors, err := adapter.GetCachedEmbeddings(ctx, eliza.TableFragments, "known text")
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{1, 2}, vectors[0])

	vectors, err = adapter.GetCachedEmbeddings(ctx, eliza.TableFragments, "unknown text")
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	roomID := uuid.New()
	alice := uuid.New()
	now := time.Now()

	pending := &eliza.Goal{ID: uuid.New(), RoomID: roomID, UserID: alice, Name: "pending", Status: eliza.GoalStatusInProgress, CreatedAt: now}
	done := &eliza.Goal{ID: uuid.New(), RoomID: roomID, UserID: alice, Name: "done", Status: eliza.GoalStatusDone, CreatedAt: now.Add(-time.Minute)}
	require.NoError(t, adapter.CreateGoal(ctx, pending))
	require.NoError(t, adapter.CreateGoal(ctx, done))

	goals, err := adapter.GetGoals(ctx, eliza.GoalQuery{RoomID: roomID, OnlyPending: true})
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "pending", goals[0].Name)

	pending.Status = eliza.GoalStatusDone
	require.NoError(t, adapter.UpdateGoal(ctx, pending))
	goals, err = adapter.GetGoals(ctx, eliza.GoalQuery{RoomID: roomID, OnlyPending: true})
	require.NoError(t, err)
	assert.Empty(t, goals)

	other := uuid.New()
	goals, err = adapter.GetGoals(ctx, eliza.GoalQuery{RoomID: roomID, UserID: &other})
	require.NoError(t, err)
	assert.Empty(t, goals)
}
