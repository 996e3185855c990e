package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

// DenseRetriever runs semantic search by pairing an embedding provider
// with a vector store behind one contract. Backends are injected at
// construction, so swapping the offline fallback for a production
// provider never touches call sites.
type DenseRetriever struct {
	embedder embed.Embedder
	vectors  store.VectorStore

	mu          sync.Mutex
	initialized bool
}

// NewDenseRetriever creates a retriever over the given backends.
func NewDenseRetriever(embedder embed.Embedder, vectors store.VectorStore) *DenseRetriever {
	return &DenseRetriever{
		embedder: embedder,
		vectors:  vectors,
	}
}

// NewMemoryDenseRetriever creates a fully in-process retriever: the
// deterministic static embedder over an in-memory HNSW store. Used when
// no embedding service is configured and in tests.
func NewMemoryDenseRetriever() (*DenseRetriever, error) {
	embedder := embed.NewStaticEmbedder()
	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return nil, err
	}
	return NewDenseRetriever(embed.NewCachedEmbedder(embedder, 0), vectors), nil
}

// Initialize prepares both backends. Idempotent once successful.
func (r *DenseRetriever) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	if err := r.embedder.Initialize(ctx); err != nil {
		return errors.Retrieval(errors.ErrCodeNotInitialized, "initialize embedder", err).WithStage("dense_retriever")
	}
	if err := r.vectors.Initialize(ctx); err != nil {
		return errors.Retrieval(errors.ErrCodeNotInitialized, "initialize vector store", err).WithStage("dense_retriever")
	}
	r.initialized = true
	return nil
}

func (r *DenseRetriever) checkInitialized() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return errors.Retrieval(errors.ErrCodeNotInitialized,
			"dense retriever has not been initialized", nil).WithStage("dense_retriever")
	}
	return nil
}

// AddDocuments embeds chunk contents in one batch and inserts the
// (chunk, embedding) pairs. No-op on empty input.
func (r *DenseRetriever) AddDocuments(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.checkInitialized(); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return errors.Retrieval(errors.ErrCodeEmbeddingFailed, "embed documents", err).WithStage("dense_retriever")
	}
	return r.vectors.AddDocuments(ctx, chunks, embeddings)
}

// Search embeds the query and runs nearest-neighbor search. An empty
// or whitespace query returns an empty list, not an error.
func (r *DenseRetriever) Search(ctx context.Context, query string, topK int) ([]*SearchResult, error) {
	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []*SearchResult{}, nil
	}
	if topK <= 0 {
		topK = 10
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeEmbeddingFailed, "embed query", err).WithStage("dense_retriever")
	}

	hits, err := r.vectors.Search(ctx, embeddings[0], store.VectorSearchOptions{
		Limit:           topK,
		Threshold:       0.0,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeSearchFailed, "vector search", err).WithStage("dense_retriever")
	}

	results := make([]*SearchResult, len(hits))
	for i, hit := range hits {
		score := float64(hit.Score)
		results[i] = &SearchResult{
			Chunk:       hit.Chunk,
			Score:       score,
			Rank:        i + 1,
			Distance:    1.0 - score,
			Explanation: fmt.Sprintf("semantic similarity %.3f (%s)", score, r.embedder.ModelName()),
			Metadata:    map[string]string{"retriever": "dense"},
		}
	}
	return results, nil
}

// Clear empties the vector store collection.
func (r *DenseRetriever) Clear(ctx context.Context) error {
	if err := r.checkInitialized(); err != nil {
		return err
	}
	return r.vectors.Clear(ctx)
}

// Count returns the number of stored documents.
func (r *DenseRetriever) Count() int {
	return r.vectors.Count()
}

// Stats reports backend statistics plus the embedding model in use.
func (r *DenseRetriever) Stats() map[string]any {
	stats := r.vectors.GetStats()
	stats["embedding_model"] = r.embedder.ModelName()
	return stats
}

// Close releases both backends.
func (r *DenseRetriever) Close() error {
	embErr := r.embedder.Close()
	vecErr := r.vectors.Close()
	if embErr != nil {
		return embErr
	}
	return vecErr
}
