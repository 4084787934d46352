// Package embedding defines the interface for text embedding providers.
// It allows the ranker to use different embedding backends (Ollama, Gemini,
// the offline hashing embedder) interchangeably.
package embedding

import "context"

// Embedder is the interface that text embedding providers must implement.
type Embedder interface {
	// Embed converts normalized, non-empty text into a vector embedding.
	// The same input must always produce the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of every vector Embed produces.
	Dimension() int
}

// BatchEmbedder is implemented by providers that can embed several texts in a
// single request. The returned slice is index-aligned with texts.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
