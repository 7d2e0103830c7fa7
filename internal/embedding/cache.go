// File path: internal/embedding/cache.go
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/linkwise/linkwise/internal/cache"
	"github.com/linkwise/linkwise/internal/common/telemetry"
)

const (
	defaultCacheTTL      = 30 * time.Minute
	defaultCacheCapacity = 2048
)

// CachedEmbedder wraps an Embedder with a content-hash keyed cache so
// repeated embeddings of identical text never hit the upstream service twice
// within the TTL window.
type CachedEmbedder struct {
	inner Embedder
	store *cache.Store
}

// NewCached wraps the embedder with a fresh cache using default bounds.
func NewCached(inner Embedder) *CachedEmbedder {
	return NewCachedWithStore(inner, cache.New(defaultCacheTTL, defaultCacheCapacity))
}

// NewCachedWithStore wraps the embedder with an injected cache store.
func NewCachedWithStore(inner Embedder, store *cache.Store) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, store: store}
}

func (c *CachedEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(input))
	missing := make([]string, 0, len(input))
	missingIdx := make([]int, 0, len(input))
	for i, text := range input {
		key := contentKey(text)
		if cached, ok := c.store.Get(key); ok {
			if vector, ok := cached.([]float32); ok {
				vectors[i] = vector
				telemetry.RecordEmbed(true)
				continue
			}
		}
		telemetry.RecordEmbed(false)
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}
	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, vector := range fresh {
		if i >= len(missingIdx) {
			break
		}
		vectors[missingIdx[i]] = vector
		c.store.Set(contentKey(missing[i]), vector)
	}
	return vectors, nil
}

func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
