package similarity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spigell/cv-screener/internal/ai"
)

// Cache memoizes embeddings by exact text. Entries are never evicted, so a
// cache lives as long as the process that created it.
type Cache struct {
	embedder ai.Embedder

	mu      sync.RWMutex
	vectors map[string][]float32

	calls atomic.Int64
}

// NewCache wraps embedder with an append-only cache.
func NewCache(embedder ai.Embedder) *Cache {
	return &Cache{
		embedder: embedder,
		vectors:  make(map[string][]float32),
	}
}

// Embed returns the cached vector for text, computing it on first use.
// Concurrent first calls for the same text may both reach the embedder; the
// first stored vector wins.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	if vec, ok := c.vectors[text]; ok {
		c.mu.RUnlock()
		return vec, nil
	}
	c.mu.RUnlock()

	c.calls.Add(1)
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.vectors[text]; ok {
		return existing, nil
	}
	c.vectors[text] = vec

	return vec, nil
}

// Calls reports how many times the underlying embedder was invoked.
func (c *Cache) Calls() int64 {
	return c.calls.Load()
}

// Len is the number of cached texts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
