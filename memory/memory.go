// Package memory provides an in-memory DatabaseAdapter, suitable for
// tests, examples, and embedded single-process agents. Similarity search
// is a brute-force cosine ranking over the partition.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yungalgo/eliza"
)

// Adapter is an in-memory implementation of eliza.DatabaseAdapter.
type Adapter struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*eliza.Account
	rooms        map[uuid.UUID]struct{}
	participants map[uuid.UUID]map[uuid.UUID]struct{} // roomID -> userIDs
	memories     map[string][]*eliza.Memory           // table -> insertion order
	goals        map[uuid.UUID]*eliza.Goal
}

// NewAdapter creates an empty in-memory adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		accounts:     make(map[uuid.UUID]*eliza.Account),
		rooms:        make(map[uuid.UUID]struct{}),
		participants: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		memories:     make(map[string][]*eliza.Memory),
		goals:        make(map[uuid.UUID]*eliza.Goal),
	}
}

// GetAccountByID returns the account, or nil when absent.
func (a *Adapter) GetAccountByID(ctx context.Context, userID uuid.UUID) (*eliza.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accounts[userID], nil
}

// CreateAccount stores the account.
func (a *Adapter) CreateAccount(ctx context.Context, account *eliza.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[account.ID] = account
	return nil
}

// GetRoom reports whether the room exists.
func (a *Adapter) GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.rooms[roomID]; ok {
		return roomID, true, nil
	}
	return uuid.Nil, false, nil
}

// CreateRoom stores the room.
func (a *Adapter) CreateRoom(ctx context.Context, roomID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms[roomID] = struct{}{}
	return nil
}

// GetParticipantsForAccount returns the rooms the user participates in.
func (a *Adapter) GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var rooms []uuid.UUID
	for roomID, users := range a.participants {
		if _, ok := users[userID]; ok {
			rooms = append(rooms, roomID)
		}
	}
	return rooms, nil
}

// GetParticipantsForRoom returns the room's members.
func (a *Adapter) GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var users []uuid.UUID
	for userID := range a.participants[roomID] {
		users = append(users, userID)
	}
	return users, nil
}

// AddParticipant adds the user to the room.
func (a *Adapter) AddParticipant(ctx context.Context, userID, roomID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.participants[roomID] == nil {
		a.participants[roomID] = make(map[uuid.UUID]struct{})
	}
	a.participants[roomID][userID] = struct{}{}
	return nil
}

// GetRoomsForParticipants returns rooms containing every given user.
func (a *Adapter) GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var rooms []uuid.UUID
	for roomID, users := range a.participants {
		all := true
		for _, userID := range userIDs {
			if _, ok := users[userID]; !ok {
				all = false
				break
			}
		}
		if all {
			rooms = append(rooms, roomID)
		}
	}
	return rooms, nil
}

// GetActorDetails projects the room's members into actors.
func (a *Adapter) GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]*eliza.Actor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var actors []*eliza.Actor
	for userID := range a.participants[roomID] {
		actor := &eliza.Actor{ID: userID, Name: "Unknown User"}
		if account := a.accounts[userID]; account != nil {
			actor.Name = account.Name
			actor.Username = account.Username
		}
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i].Name < actors[j].Name })
	return actors, nil
}

// CreateMemory appends the memory to the partition. With unique set, a
// record with the same id is a no-op and the stored record is marked
// unique so unique-scoped queries can find it.
func (a *Adapter) CreateMemory(ctx context.Context, table string, memory *eliza.Memory, unique bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if unique {
		for _, existing := range a.memories[table] {
			if existing.ID == memory.ID {
				return nil
			}
		}
	}
	memory.Unique = unique
	a.memories[table] = append(a.memories[table], memory)
	return nil
}

// GetMemoryByID returns the memory, or nil when absent.
func (a *Adapter) GetMemoryByID(ctx context.Context, table string, id uuid.UUID) (*eliza.Memory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, memory := range a.memories[table] {
		if memory.ID == id {
			return memory, nil
		}
	}
	return nil, nil
}

// GetMemories returns the room's memories, most recent first, capped at
// the query count. With query.Unique set only unique records are returned.
func (a *Adapter) GetMemories(ctx context.Context, table string, query eliza.MemoryQuery) ([]*eliza.Memory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*eliza.Memory
	for _, memory := range a.memories[table] {
		if memory.RoomID != query.RoomID {
			continue
		}
		if query.Unique && !memory.Unique {
			continue
		}
		out = append(out, memory)
	}
	sortRecentFirst(out)
	if query.Count > 0 && len(out) > query.Count {
		out = out[:query.Count]
	}
	return out, nil
}

// GetMemoriesByRoomIDs returns recent memories across rooms.
func (a *Adapter) GetMemoriesByRoomIDs(ctx context.Context, table string, roomIDs []uuid.UUID, limit int) ([]*eliza.Memory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	wanted := make(map[uuid.UUID]struct{}, len(roomIDs))
	for _, roomID := range roomIDs {
		wanted[roomID] = struct{}{}
	}
	var out []*eliza.Memory
	for _, memory := range a.memories[table] {
		if _, ok := wanted[memory.RoomID]; ok {
			out = append(out, memory)
		}
	}
	sortRecentFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchMemoriesByEmbedding ranks the room's embedded memories by cosine
// similarity, filters by the match threshold, and caps at count. Ties
// break by recency.
func (a *Adapter) SearchMemoriesByEmbedding(ctx context.Context, table string, embedding []float32, params eliza.SearchParams) ([]*eliza.Memory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	type scored struct {
		memory     *eliza.Memory
		similarity float64
	}
	var candidates []scored
	for _, memory := range a.memories[table] {
		if memory.RoomID != params.RoomID || len(memory.Embedding) == 0 {
			continue
		}
		if params.AgentID != nil && memory.AgentID != *params.AgentID {
			continue
		}
		if params.Unique && !memory.Unique {
			continue
		}
		similarity, err := eliza.CosineSimilarity(embedding, memory.Embedding)
		if err != nil {
			continue
		}
		if similarity < params.MatchThreshold {
			continue
		}
		candidates = append(candidates, scored{memory: memory, similarity: similarity})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].memory.CreatedAt.After(candidates[j].memory.CreatedAt)
	})
	count := params.Count
	if count <= 0 {
		count = len(candidates)
	}
	out := make([]*eliza.Memory, 0, min(count, len(candidates)))
	for _, c := range candidates[:min(count, len(candidates))] {
		out = append(out, c.memory)
	}
	return out, nil
}

// GetCachedEmbeddings returns vectors previously stored for identical text.
func (a *Adapter) GetCachedEmbeddings(ctx context.Context, table string, text string) ([][]float32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out [][]float32
	for _, memory := range a.memories[table] {
		if memory.Content != nil && memory.Content.Text == text && len(memory.Embedding) > 0 {
			out = append(out, memory.Embedding)
		}
	}
	return out, nil
}

// RemoveMemory deletes the memory with the given id from the partition.
func (a *Adapter) RemoveMemory(ctx context.Context, table string, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	memories := a.memories[table]
	for i, memory := range memories {
		if memory.ID == id {
			a.memories[table] = append(memories[:i], memories[i+1:]...)
			return nil
		}
	}
	return nil
}

// RemoveAllMemories deletes every memory for the room in the partition.
func (a *Adapter) RemoveAllMemories(ctx context.Context, table string, roomID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var kept []*eliza.Memory
	for _, memory := range a.memories[table] {
		if memory.RoomID != roomID {
			kept = append(kept, memory)
		}
	}
	a.memories[table] = kept
	return nil
}

// GetGoals returns goals for the room, optionally only pending ones.
func (a *Adapter) GetGoals(ctx context.Context, query eliza.GoalQuery) ([]*eliza.Goal, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*eliza.Goal
	for _, goal := range a.goals {
		if goal.RoomID != query.RoomID {
			continue
		}
		if query.OnlyPending && goal.Status != eliza.GoalStatusInProgress {
			continue
		}
		if query.UserID != nil && goal.UserID != *query.UserID {
			continue
		}
		out = append(out, goal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if query.Count > 0 && len(out) > query.Count {
		out = out[:query.Count]
	}
	return out, nil
}

// CreateGoal stores the goal.
func (a *Adapter) CreateGoal(ctx context.Context, goal *eliza.Goal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.goals[goal.ID] = goal
	return nil
}

// UpdateGoal replaces the stored goal.
func (a *Adapter) UpdateGoal(ctx context.Context, goal *eliza.Goal) error {
	return a.CreateGoal(ctx, goal)
}

func sortRecentFirst(memories []*eliza.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
}
