// Package embed provides text embedding providers for dense retrieval.
//
// An Embedder turns text into fixed-dimension vectors. The static
// embedder is a deterministic offline fallback; the OpenAI embedder
// calls a real embedding API. Providers are interchangeable behind the
// Embedder interface so the dense retriever never cares which is wired.
package embed

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Initialize prepares the embedder (loads models, checks connectivity).
	Initialize(ctx context.Context) error

	// Embed generates embeddings for a batch of texts.
	// Returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the model identifier for logging and stats.
	ModelName() string

	// Close releases any held resources.
	Close() error
}
