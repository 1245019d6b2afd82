package eliza

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyMemoryText is returned when an embedding is requested for a
// memory with no text.
var ErrEmptyMemoryText = errors.New("cannot generate embedding: memory content is empty")

// EmbeddingCache is an optional cross-process cache consulted before the
// model provider is asked for a vector.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, embedding []float32) error
}

// ManagerOption configures a MemoryManager.
type ManagerOption func(*MemoryManager)

// WithEmbedder sets the model provider used for lazy embedding.
func WithEmbedder(model ModelProvider) ManagerOption {
	return func(m *MemoryManager) {
		m.model = model
	}
}

// WithManagerCache sets an embedding cache consulted before the embedder.
func WithManagerCache(cache EmbeddingCache) ManagerOption {
	return func(m *MemoryManager) {
		m.cache = cache
	}
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *MemoryManager) {
		m.logger = logger
	}
}

// MemoryManager scopes one memory partition of a DatabaseAdapter and adds
// lazy embedding on top of it: vectors are computed only when a record
// without one is created or searched for, after probing the store for a
// previously computed vector for identical text.
type MemoryManager struct {
	adapter DatabaseAdapter
	table   string
	model   ModelProvider
	cache   EmbeddingCache
	logger  *zap.Logger
}

// NewMemoryManager creates a manager for the given partition table.
func NewMemoryManager(adapter DatabaseAdapter, table string, opts ...ManagerOption) *MemoryManager {
	m := &MemoryManager{
		adapter: adapter,
		table:   table,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the partition name this manager addresses.
func (m *MemoryManager) Table() string {
	return m.table
}

// Embedding returns a vector for the given text, trying the external
// cache, then the store's cached embeddings for identical text, then the
// model provider. The computed vector is written back to the cache.
func (m *MemoryManager) Embedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyMemoryText
	}
	if m.cache != nil {
		if embedding, ok, err := m.cache.Get(ctx, text); err == nil && ok {
			return embedding, nil
		}
	}
	cached, err := m.adapter.GetCachedEmbeddings(ctx, m.table, text)
	if err == nil && len(cached) > 0 {
		return cached[0], nil
	}
	if m.model == nil {
		return nil, ErrModelProviderRequired
	}
	embedding, err := m.model.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		if err := m.cache.Set(ctx, text, embedding); err != nil {
			m.logger.Debug("embedding cache write failed", zap.Error(err))
		}
	}
	return embedding, nil
}

// AddEmbeddingToMemory lazily computes the memory's embedding if absent.
func (m *MemoryManager) AddEmbeddingToMemory(ctx context.Context, memory *Memory) error {
	if len(memory.Embedding) > 0 {
		return nil
	}
	if memory.Content == nil || memory.Content.Text == "" {
		return ErrEmptyMemoryText
	}
	embedding, err := m.Embedding(ctx, memory.Content.Text)
	if err != nil {
		return err
	}
	memory.Embedding = embedding
	return nil
}

// CreateMemory persists the memory into this partition.
func (m *MemoryManager) CreateMemory(ctx context.Context, memory *Memory, unique bool) error {
	return m.adapter.CreateMemory(ctx, m.table, memory, unique)
}

// GetMemoryByID returns the memory with the given id, or nil if absent.
func (m *MemoryManager) GetMemoryByID(ctx context.Context, id uuid.UUID) (*Memory, error) {
	return m.adapter.GetMemoryByID(ctx, m.table, id)
}

// GetMemories returns recent memories for a room, most recent first.
func (m *MemoryManager) GetMemories(ctx context.Context, query MemoryQuery) ([]*Memory, error) {
	return m.adapter.GetMemories(ctx, m.table, query)
}

// GetMemoriesByRoomIDs returns recent memories across several rooms.
func (m *MemoryManager) GetMemoriesByRoomIDs(ctx context.Context, roomIDs []uuid.UUID, limit int) ([]*Memory, error) {
	return m.adapter.GetMemoriesByRoomIDs(ctx, m.table, roomIDs, limit)
}

// SearchMemoriesByEmbedding returns memories ranked by cosine similarity,
// filtered by the params' match threshold and capped at its count.
func (m *MemoryManager) SearchMemoriesByEmbedding(ctx context.Context, embedding []float32, params SearchParams) ([]*Memory, error) {
	return m.adapter.SearchMemoriesByEmbedding(ctx, m.table, embedding, params)
}

// GetCachedEmbeddings returns previously computed vectors for identical text.
func (m *MemoryManager) GetCachedEmbeddings(ctx context.Context, text string) ([][]float32, error) {
	return m.adapter.GetCachedEmbeddings(ctx, m.table, text)
}

// RemoveMemory deletes one memory from this partition.
func (m *MemoryManager) RemoveMemory(ctx context.Context, id uuid.UUID) error {
	return m.adapter.RemoveMemory(ctx, m.table, id)
}

// RemoveAllMemories deletes every memory for a room in this partition.
func (m *MemoryManager) RemoveAllMemories(ctx context.Context, roomID uuid.UUID) error {
	return m.adapter.RemoveAllMemories(ctx, m.table, roomID)
}
