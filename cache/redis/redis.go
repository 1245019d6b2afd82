// Package redis provides an EmbeddingCache backed by Redis, letting
// multiple agent processes share one embedding cache and survive restarts.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const defaultNamespace = "eliza:embeddings"

// Option configures the cache.
type Option func(*Cache)

// WithNamespace sets the key prefix, isolating caches that share a Redis
// instance.
func WithNamespace(namespace string) Option {
	return func(c *Cache) {
		if namespace != "" {
			c.namespace = namespace
		}
	}
}

// WithTTL sets an expiry on cached embeddings. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// Cache implements eliza.EmbeddingCache over a Redis client. Keys are the
// SHA-256 of the embedded text under the cache namespace, values are
// JSON-encoded vectors.
type Cache struct {
	client    *goredis.Client
	namespace string
	ttl       time.Duration
}

// New creates a cache over an existing Redis client.
func New(client *goredis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, namespace: defaultNamespace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for the text, reporting whether it was
// present.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(text)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading embedding cache: %w", err)
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
		return nil, false, fmt.Errorf("decoding cached embedding: %w", err)
	}
	return embedding, true, nil
}

// Set stores the embedding for the text.
func (c *Cache) Set(ctx context.Context, text string, embedding []float32) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(text), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing embedding cache: %w", err)
	}
	return nil
}
