// Package store provides the retrievable document model, the sparse
// (BM25) index backends, and the HNSW vector store.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chunk is the immutable unit of retrievable text.
// Indices hold independent copies; there is no shared mutable ownership.
type Chunk struct {
	ID        string            // UUID, unique within a single index
	Content   string            // Raw text content
	Metadata  map[string]string // Optional caller-supplied metadata
	CreatedAt time.Time
}

// NewChunk creates a chunk with a fresh UUID.
func NewChunk(content string, metadata map[string]string) *Chunk {
	return &Chunk{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy of the chunk. When withMetadata is false the
// copy carries no metadata (vector store include_metadata=false path).
func (c *Chunk) Clone(withMetadata bool) *Chunk {
	out := &Chunk{
		ID:        c.ID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if withMetadata && c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SparseResult is a single sparse-search hit. Score is already
// normalized to [0,1] by the index (see BM25 score clamp).
type SparseResult struct {
	Chunk        *Chunk
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about a sparse index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// SparseIndex provides keyword search using the BM25 algorithm.
// Single-writer access is assumed for AddDocuments; Search is safe to
// run concurrently with other Search calls.
type SparseIndex interface {
	// AddDocuments preprocesses and appends chunks, then rebuilds the
	// ranking model. Rebuild is O(corpus size).
	AddDocuments(ctx context.Context, chunks []*Chunk) error

	// Search returns up to topK documents scored by BM25, descending,
	// zero-score documents dropped. An empty query string is a
	// validation error; a query whose tokens are all filtered out
	// returns an empty list.
	Search(ctx context.Context, query string, topK int) ([]*SparseResult, error)

	// Get returns the chunk with the given ID, if indexed.
	Get(id string) (*Chunk, bool)

	// DocumentCount reports the number of indexed chunks.
	DocumentCount() int

	// Stats returns index statistics.
	Stats() *IndexStats

	// Clear resets the index to empty without destroying it.
	Clear(ctx context.Context) error

	// Close releases index resources.
	Close() error
}

// BM25Config configures sparse indexing and scoring.
type BM25Config struct {
	// K1 is the term-frequency saturation parameter.
	K1 float64 `yaml:"k1"`

	// B is the document-length normalization parameter.
	B float64 `yaml:"b"`

	// TopK is the default number of results when the caller passes <= 0.
	TopK int `yaml:"top_k"`

	// Lowercase controls query/document lowercasing during tokenization.
	Lowercase bool `yaml:"lowercase"`

	// MinTokenLength drops tokens shorter than this many letters.
	MinTokenLength int `yaml:"min_token_length"`

	// StopWords are dropped during tokenization.
	StopWords []string `yaml:"stop_words"`
}

// DefaultBM25Config returns the default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.5,
		B:              0.75,
		TopK:           100,
		Lowercase:      true,
		MinTokenLength: 2,
		StopWords:      EnglishStopWords,
	}
}

// bm25ScoreScale converts raw BM25 scores to [0,1] via
// min(raw/bm25ScoreScale, 1.0). This is a fixed empirical scaling kept
// for compatibility, not a statistically derived bound.
const bm25ScoreScale = 10.0

// NormalizeBM25Score clamps a raw BM25 score into [0,1].
func NormalizeBM25Score(raw float64) float64 {
	s := raw / bm25ScoreScale
	if s > 1.0 {
		return 1.0
	}
	return s
}

// VectorResult is a single vector-search hit.
type VectorResult struct {
	Chunk    *Chunk
	Score    float32 // Normalized similarity (0-1)
	Distance float32 // Metric distance (0-2 for cosine)
}

// VectorSearchOptions configures a vector store search.
type VectorSearchOptions struct {
	// Limit is the maximum number of neighbors to return.
	Limit int

	// Threshold drops results with Score below it (0 = no filtering).
	Threshold float32

	// IncludeMetadata controls whether chunk metadata is returned.
	IncludeMetadata bool
}

// VectorStore stores (chunk, embedding) pairs and performs
// nearest-neighbor search. Implementations are pluggable backends.
type VectorStore interface {
	// Initialize validates the store and prepares it for use.
	// Idempotent once successful.
	Initialize(ctx context.Context) error

	// AddDocuments inserts chunks with their embeddings.
	// len(chunks) must equal len(embeddings).
	AddDocuments(ctx context.Context, chunks []*Chunk, embeddings [][]float32) error

	// Search finds nearest neighbors to the query embedding, ordered by
	// store-defined similarity.
	Search(ctx context.Context, query []float32, opts VectorSearchOptions) ([]*VectorResult, error)

	// Count returns the number of stored vectors.
	Count() int

	// Clear removes all vectors without destroying the store.
	Clear(ctx context.Context) error

	// GetStats returns backend statistics.
	GetStats() map[string]any

	// Close releases resources.
	Close() error
}

// SparseBackend names a sparse index implementation.
type SparseBackend string

const (
	// SparseBackendMemory is the in-process BM25 model (default).
	SparseBackendMemory SparseBackend = "memory"

	// SparseBackendBleve is the bleve-backed persistent index.
	SparseBackendBleve SparseBackend = "bleve"
)

// NewSparseIndex creates a sparse index for the given backend.
// path is only used by persistent backends; empty means in-memory.
func NewSparseIndex(backend SparseBackend, path string, config BM25Config) (SparseIndex, error) {
	switch SparseBackend(strings.ToLower(string(backend))) {
	case SparseBackendBleve:
		return NewBleveSparseIndex(path, config)
	case SparseBackendMemory, "":
		return NewMemorySparseIndex(config), nil
	default:
		return NewMemorySparseIndex(config), nil
	}
}
