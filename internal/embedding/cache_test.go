// File path: internal/embedding/cache_test.go
package embedding

import (
	"context"
	"testing"
)

type countingEmbedder struct {
	calls int
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	c.calls++
	c.texts += len(input)
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{float32(len(input[i])), 1}
	}
	return out, nil
}

func (c *countingEmbedder) Name() string { return "counting" }

func TestCachedEmbedderReusesVectors(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCached(inner)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("second call should be fully cached, inner calls=%d", inner.calls)
	}
	for i := range first {
		if first[i][0] != second[i][0] {
			t.Fatalf("cached vector %d diverged", i)
		}
	}
}

func TestCachedEmbedderPartialMiss(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCached(inner)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, []string{"alpha"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	out, err := cached.Embed(ctx, []string{"alpha", "gamma"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(out))
	}
	if inner.texts != 2 {
		t.Fatalf("only cache misses should reach the inner embedder, embedded %d texts", inner.texts)
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	local := NewLocalEmbedder(64)
	ctx := context.Background()
	a, err := local.Embed(ctx, []string{"rental property investing"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := local.Embed(ctx, []string{"rental property investing"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("local embedding not deterministic")
		}
	}
	var norm float32
	for _, v := range a[0] {
		norm += v * v
	}
	if norm < 0.99 || norm > 1.01 {
		t.Fatalf("expected unit vector, norm^2=%f", norm)
	}
}
