package embedding

import (
	"context"
	"sync"
)

// Guarded serializes access to an Embedder that is not safe for concurrent
// use. Every call holds the lock for its whole duration.
type Guarded struct {
	mu   sync.Mutex
	next Embedder
}

func NewGuarded(next Embedder) *Guarded {
	return &Guarded{next: next}
}

func (g *Guarded) Embed(ctx context.Context, text string) ([]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.next.Embed(ctx, text)
}

func (g *Guarded) Dimension() int {
	return g.next.Dimension()
}

// EmbedBatch keeps the lock across the whole batch. Providers without native
// batching are called once per text.
func (g *Guarded) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.next.(BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := g.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}
