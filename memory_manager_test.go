package eliza_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungalgo/eliza"
	"github.com/yungalgo/eliza/memory"
)

// mapCache is an in-process EmbeddingCache recording hits and writes.
type mapCache struct {
	entries map[string][]float32
	gets    int
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]float32{}}
}

func (c *mapCache) Get(ctx context.Context, text string) ([]float32, bool, error) {
	c.gets++
	embedding, ok := c.entries[text]
	return embedding, ok, nil
}

func (c *mapCache) Set(ctx context.Context, text string, embedding []float32) error {
	c.sets++
	c.entries[text] = embedding
	return nil
}

// countingModel counts Embed calls on top of the shared test embedding.
type countingModel struct {
	testModel
	embeds int
}

func (m *countingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embeds++
	return m.testModel.Embed(ctx, text)
}

func TestEmbeddingChain(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	model := &countingModel{}
	cache := newMapCache()
	manager := eliza.NewMemoryManager(adapter, eliza.TableFragments,
		eliza.WithEmbedder(model),
		eliza.WithManagerCache(cache),
	)

	if _, err := manager.Embedding(ctx, ""); !errors.Is(err, eliza.ErrEmptyMemoryText) {
		t.Fatalf("got %v, want ErrEmptyMemoryText", err)
	}

	// Cold path: model computes, result lands in the cache.
	first, err := manager.Embedding(ctx, "the sky is blue")
	if err != nil {
		t.Fatal(err)
	}
	if model.embeds != 1 || cache.sets != 1 {
		t.Fatalf("embeds=%d sets=%d", model.embeds, cache.sets)
	}

	// Warm path: the cache answers, the model stays idle.
	second, err := manager.Embedding(ctx, "the sky is blue")
	if err != nil {
		t.Fatal(err)
	}
	if model.embeds != 1 {
		t.Fatalf("cache hit must not reach the model, embeds=%d", model.embeds)
	}
	if len(first) != len(second) {
		t.Fatal("cached vector differs from computed one")
	}
}

func TestEmbeddingReusesStoredVectors(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewAdapter()
	model := &countingModel{}
	manager := eliza.NewMemoryManager(adapter, eliza.TableFragments, eliza.WithEmbedder(model))

	stored := &eliza.Memory{
		ID:        uuid.New(),
		RoomID:    uuid.New(),
		Content:   &eliza.Content{Text: "previously embedded"},
		Embedding: []float32{1, 2, 3},
		CreatedAt: time.Now(),
	}
	if err := manager.CreateMemory(ctx, stored, false); err != nil {
		t.Fatal(err)
	}

	embedding, err := manager.Embedding(ctx, "previously embedded")
	if err != nil {
		t.Fatal(err)
	}
	if model.embeds != 0 {
		t.Fatal("identical stored text must satisfy the request without the model")
	}
	if len(embedding) != 3 || embedding[0] != 1 {
		t.Fatalf("embedding: %v", embedding)
	}
}

func TestAddEmbeddingToMemory(t *testing.T) {
	ctx := context.Background()
	model := &countingModel{}
	manager := eliza.NewMemoryManager(memory.NewAdapter(), eliza.TableMessages, eliza.WithEmbedder(model))

	m := &eliza.Memory{Content: &eliza.Content{Text: "embed me"}}
	if err := manager.AddEmbeddingToMemory(ctx, m); err != nil {
		t.Fatal(err)
	}
	if len(m.Embedding) == 0 || model.embeds != 1 {
		t.Fatalf("embedding missing: %v, embeds=%d", m.Embedding, model.embeds)
	}

	// Present vectors are kept as is.
	if err := manager.AddEmbeddingToMemory(ctx, m); err != nil {
		t.Fatal(err)
	}
	if model.embeds != 1 {
		t.Fatal("existing embedding must not be recomputed")
	}

	empty := &eliza.Memory{Content: &eliza.Content{}}
	if err := manager.AddEmbeddingToMemory(ctx, empty); !errors.Is(err, eliza.ErrEmptyMemoryText) {
		t.Fatalf("got %v, want ErrEmptyMemoryText", err)
	}
}
