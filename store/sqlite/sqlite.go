// Package sqlite provides a persistent DatabaseAdapter backed by SQLite
// (pure-Go driver). Embeddings are serialized as JSON and ranked by cosine
// similarity in Go, keeping the store free of native extensions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yungalgo/eliza"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	username TEXT NOT NULL,
	email TEXT,
	details TEXT
);
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS participants (
	user_id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	PRIMARY KEY (user_id, room_id)
);
CREATE TABLE IF NOT EXISTS memories (
	id TEXT NOT NULL,
	partition TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT,
	is_unique INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (partition, id)
);
CREATE INDEX IF NOT EXISTS idx_memories_room ON memories (partition, room_id, created_at);
CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	objectives TEXT,
	created_at INTEGER NOT NULL
);
`

// Adapter is a SQLite-backed implementation of eliza.DatabaseAdapter.
type Adapter struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Close closes the underlying database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// GetAccountByID returns the account, or nil when absent.
func (a *Adapter) GetAccountByID(ctx context.Context, userID uuid.UUID) (*eliza.Account, error) {
	row := a.db.QueryRowContext(ctx,
		"SELECT id, name, username, email, details FROM accounts WHERE id = ?", userID.String())
	var (
		account eliza.Account
		id      string
		email   sql.NullString
		details sql.NullString
	)
	if err := row.Scan(&id, &account.Name, &account.Username, &email, &details); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	account.ID = parsed
	account.Email = email.String
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &account.Details); err != nil {
			return nil, err
		}
	}
	return &account, nil
}

// CreateAccount stores the account.
func (a *Adapter) CreateAccount(ctx context.Context, account *eliza.Account) error {
	details, err := json.Marshal(account.Details)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO accounts (id, name, username, email, details) VALUES (?, ?, ?, ?, ?)",
		account.ID.String(), account.Name, account.Username, account.Email, string(details))
	return err
}

// GetRoom reports whether the room exists.
func (a *Adapter) GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, bool, error) {
	row := a.db.QueryRowContext(ctx, "SELECT id FROM rooms WHERE id = ?", roomID.String())
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return roomID, true, nil
}

// CreateRoom stores the room.
func (a *Adapter) CreateRoom(ctx context.Context, roomID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO rooms (id, created_at) VALUES (?, ?)",
		roomID.String(), time.Now().UnixMilli())
	return err
}

// GetParticipantsForAccount returns the rooms the user participates in.
func (a *Adapter) GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT room_id FROM participants WHERE user_id = ?", userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUUIDs(rows)
}

// GetParticipantsForRoom returns the room's members.
func (a *Adapter) GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT user_id FROM participants WHERE room_id = ?", roomID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUUIDs(rows)
}

// AddParticipant adds the user to the room.
func (a *Adapter) AddParticipant(ctx context.Context, userID, roomID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO participants (user_id, room_id) VALUES (?, ?)",
		userID.String(), roomID.String())
	return err
}

// GetRoomsForParticipants returns rooms containing every given user.
func (a *Adapter) GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := "SELECT room_id FROM participants WHERE user_id IN (?" +
		strings.Repeat(",?", len(userIDs)-1) +
		") GROUP BY room_id HAVING COUNT(DISTINCT user_id) = ?"
	args := make([]any, 0, len(userIDs)+1)
	for _, userID := range userIDs {
		args = append(args, userID.String())
	}
	args = append(args, len(userIDs))
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUUIDs(rows)
}

// GetActorDetails projects the room's members into actors.
func (a *Adapter) GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]*eliza.Actor, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.user_id, COALESCE(a.name, ''), COALESCE(a.username, '')
		FROM participants p LEFT JOIN accounts a ON a.id = p.user_id
		WHERE p.room_id = ? ORDER BY a.name`, roomID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actors []*eliza.Actor
	for rows.Next() {
		var (
			id       string
			name     string
			username string
		)
		if err := rows.Scan(&id, &name, &username); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = "Unknown User"
		}
		actors = append(actors, &eliza.Actor{ID: parsed, Name: name, Username: username})
	}
	return actors, rows.Err()
}

// CreateMemory persists the memory into the partition. With unique set, an
// existing record under the same id is left untouched and the stored row
// is marked unique so unique-scoped queries can find it.
func (a *Adapter) CreateMemory(ctx context.Context, table string, memory *eliza.Memory, unique bool) error {
	content, err := json.Marshal(memory.Content)
	if err != nil {
		return err
	}
	var embedding any
	if len(memory.Embedding) > 0 {
		b, err := json.Marshal(memory.Embedding)
		if err != nil {
			return err
		}
		embedding = string(b)
	}
	verb := "INSERT OR REPLACE"
	if unique {
		verb = "INSERT OR IGNORE"
	}
	createdAt := memory.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	memory.Unique = unique
	_, err = a.db.ExecContext(ctx, verb+` INTO memories
		(id, partition, agent_id, user_id, room_id, content, embedding, is_unique, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		memory.ID.String(), table, memory.AgentID.String(), memory.UserID.String(),
		memory.RoomID.String(), string(content), embedding, unique, createdAt.UnixMilli())
	return err
}

// GetMemoryByID returns the memory, or nil when absent.
func (a *Adapter) GetMemoryByID(ctx context.Context, table string, id uuid.UUID) (*eliza.Memory, error) {
	rows, err := a.db.QueryContext(ctx, selectMemories+
		" WHERE partition = ? AND id = ?", table, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	memories, err := scanMemories(rows)
	if err != nil || len(memories) == 0 {
		return nil, err
	}
	return memories[0], nil
}

// GetMemories returns the room's memories, most recent first. With
// query.Unique set only unique records are returned.
func (a *Adapter) GetMemories(ctx context.Context, table string, query eliza.MemoryQuery) ([]*eliza.Memory, error) {
	q := selectMemories + " WHERE partition = ? AND room_id = ?"
	args := []any{table, query.RoomID.String()}
	if query.Unique {
		q += " AND is_unique = 1"
	}
	q += " ORDER BY created_at DESC"
	if query.Count > 0 {
		q += " LIMIT ?"
		args = append(args, query.Count)
	}
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// GetMemoriesByRoomIDs returns recent memories across rooms.
func (a *Adapter) GetMemoriesByRoomIDs(ctx context.Context, table string, roomIDs []uuid.UUID, limit int) ([]*eliza.Memory, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	q := selectMemories + " WHERE partition = ? AND room_id IN (?" +
		strings.Repeat(",?", len(roomIDs)-1) + ") ORDER BY created_at DESC"
	args := []any{table}
	for _, roomID := range roomIDs {
		args = append(args, roomID.String())
	}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// SearchMemoriesByEmbedding loads the partition's embedded memories for
// the room and ranks them by cosine similarity in Go, filtering by the
// match threshold and capping at count. Ties break by recency.
func (a *Adapter) SearchMemoriesByEmbedding(ctx context.Context, table string, embedding []float32, params eliza.SearchParams) ([]*eliza.Memory, error) {
	q := selectMemories + " WHERE partition = ? AND room_id = ? AND embedding IS NOT NULL"
	args := []any{table, params.RoomID.String()}
	if params.AgentID != nil {
		q += " AND agent_id = ?"
		args = append(args, params.AgentID.String())
	}
	if params.Unique {
		q += " AND is_unique = 1"
	}
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	type scored struct {
		memory     *eliza.Memory
		similarity float64
	}
	var candidates []scored
	for _, memory := range memories {
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
	if count <= 0 || count > len(candidates) {
		count = len(candidates)
	}
	out := make([]*eliza.Memory, 0, count)
	for _, c := range candidates[:count] {
		out = append(out, c.memory)
	}
	return out, nil
}

// GetCachedEmbeddings returns vectors previously stored for identical text
// in the partition, newest first.
func (a *Adapter) GetCachedEmbeddings(ctx context.Context, table string, text string) ([][]float32, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT embedding FROM memories
		WHERE partition = ? AND embedding IS NOT NULL AND json_extract(content, '$.text') = ?
		ORDER BY created_at DESC`, table, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]float32
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
			continue
		}
		out = append(out, embedding)
	}
	return out, rows.Err()
}

// RemoveMemory deletes one memory from the partition.
func (a *Adapter) RemoveMemory(ctx context.Context, table string, id uuid.UUID) error {
	_, err := a.db.ExecContext(ctx,
		"DELETE FROM memories WHERE partition = ? AND id = ?", table, id.String())
	return err
}

// RemoveAllMemories deletes every memory for the room in the partition.
func (a *Adapter) RemoveAllMemories(ctx context.Context, table string, roomID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx,
		"DELETE FROM memories WHERE partition = ? AND room_id = ?", table, roomID.String())
	return err
}

// GetGoals returns goals for the room, newest first.
func (a *Adapter) GetGoals(ctx context.Context, query eliza.GoalQuery) ([]*eliza.Goal, error) {
	q := "SELECT id, room_id, user_id, name, status, objectives, created_at FROM goals WHERE room_id = ?"
	args := []any{query.RoomID.String()}
	if query.OnlyPending {
		q += " AND status = ?"
		args = append(args, string(eliza.GoalStatusInProgress))
	}
	if query.UserID != nil {
		q += " AND user_id = ?"
		args = append(args, query.UserID.String())
	}
	q += " ORDER BY created_at DESC"
	if query.Count > 0 {
		q += " LIMIT ?"
		args = append(args, query.Count)
	}
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var goals []*eliza.Goal
	for rows.Next() {
		var (
			goal       eliza.Goal
			id         string
			roomID     string
			userID     string
			status     string
			objectives sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&id, &roomID, &userID, &goal.Name, &status, &objectives, &createdAt); err != nil {
			return nil, err
		}
		if goal.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if goal.RoomID, err = uuid.Parse(roomID); err != nil {
			return nil, err
		}
		if goal.UserID, err = uuid.Parse(userID); err != nil {
			return nil, err
		}
		goal.Status = eliza.GoalStatus(status)
		goal.CreatedAt = time.UnixMilli(createdAt).UTC()
		if objectives.Valid && objectives.String != "" {
			if err := json.Unmarshal([]byte(objectives.String), &goal.Objectives); err != nil {
				return nil, err
			}
		}
		goals = append(goals, &goal)
	}
	return goals, rows.Err()
}

// CreateGoal stores the goal.
func (a *Adapter) CreateGoal(ctx context.Context, goal *eliza.Goal) error {
	objectives, err := json.Marshal(goal.Objectives)
	if err != nil {
		return err
	}
	createdAt := goal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = a.db.ExecContext(ctx, `INSERT OR REPLACE INTO goals
		(id, room_id, user_id, name, status, objectives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		goal.ID.String(), goal.RoomID.String(), goal.UserID.String(),
		goal.Name, string(goal.Status), string(objectives), createdAt.UnixMilli())
	return err
}

// UpdateGoal replaces the stored goal.
func (a *Adapter) UpdateGoal(ctx context.Context, goal *eliza.Goal) error {
	return a.CreateGoal(ctx, goal)
}

const selectMemories = "SELECT id, agent_id, user_id, room_id, content, embedding, is_unique, created_at FROM memories"

func scanMemories(rows *sql.Rows) ([]*eliza.Memory, error) {
	var memories []*eliza.Memory
	for rows.Next() {
		var (
			memory    eliza.Memory
			id        string
			agentID   string
			userID    string
			roomID    string
			content   string
			embedding sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&id, &agentID, &userID, &roomID, &content, &embedding, &memory.Unique, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if memory.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if memory.AgentID, err = uuid.Parse(agentID); err != nil {
			return nil, err
		}
		if memory.UserID, err = uuid.Parse(userID); err != nil {
			return nil, err
		}
		if memory.RoomID, err = uuid.Parse(roomID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(content), &memory.Content); err != nil {
			return nil, err
		}
		if embedding.Valid && embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &memory.Embedding); err != nil {
				return nil, err
			}
		}
		memory.CreatedAt = time.UnixMilli(createdAt).UTC()
		memories = append(memories, &memory)
	}
	return memories, rows.Err()
}

func scanUUIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
