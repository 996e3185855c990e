package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
)

func newTestVectorStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()

	s, err := NewHNSWStore(DefaultVectorStoreConfig(dims))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHNSWStore_RequiresInitialize(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(3))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Search(context.Background(), []float32{1, 0, 0}, VectorSearchOptions{Limit: 1})
	require.Error(t, err)
	assert.True(t, errors.IsRetrieval(err))
	assert.Equal(t, errors.ErrCodeNotInitialized, errors.GetCode(err))

	err = s.AddDocuments(context.Background(), []*Chunk{NewChunk("x", nil)}, [][]float32{{1, 0, 0}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotInitialized, errors.GetCode(err))
}

func TestHNSWStore_AddAndSearch(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	chunks := []*Chunk{
		NewChunk("x axis", nil),
		NewChunk("y axis", nil),
		NewChunk("xy diagonal", nil),
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{1, 1, 0},
	}
	require.NoError(t, s.AddDocuments(ctx, chunks, embeddings))
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, []float32{1, 0.1, 0}, VectorSearchOptions{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Nearest neighbor is the x axis vector.
	assert.Equal(t, "x axis", results[0].Chunk.Content)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestHNSWStore_ResultsSortedByDistance(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	// Inserted deliberately out of similarity order relative to the
	// query so sorted output cannot come from insertion order.
	chunks := []*Chunk{
		NewChunk("diagonal", nil),
		NewChunk("orthogonal", nil),
		NewChunk("exact", nil),
		NewChunk("mostly orthogonal", nil),
		NewChunk("near", nil),
	}
	embeddings := [][]float32{
		{1, 1, 0, 0},
		{0, 1, 0, 0},
		{1, 0, 0, 0},
		{0.2, 1, 0, 0},
		{1, 0.2, 0, 0},
	}
	require.NoError(t, s.AddDocuments(ctx, chunks, embeddings))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, VectorSearchOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 5)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Chunk.Content
	}
	assert.Equal(t, []string{"exact", "near", "diagonal", "mostly orthogonal", "orthogonal"}, got)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, 3)

	_, err := s.Search(context.Background(), []float32{1, 0}, VectorSearchOptions{Limit: 1})
	require.Error(t, err)

	err = s.AddDocuments(context.Background(), []*Chunk{NewChunk("x", nil)}, [][]float32{{1, 0}})
	require.Error(t, err)
}

func TestHNSWStore_ThresholdFiltering(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx,
		[]*Chunk{NewChunk("aligned", nil), NewChunk("orthogonal", nil)},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))

	// Orthogonal vectors score 0.5 under 1 - d/2; a 0.9 threshold
	// keeps only the aligned one.
	results, err := s.Search(ctx, []float32{1, 0, 0}, VectorSearchOptions{Limit: 10, Threshold: 0.9})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aligned", results[0].Chunk.Content)
}

func TestHNSWStore_IncludeMetadata(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	chunk := NewChunk("with metadata", map[string]string{"source": "test.md"})
	require.NoError(t, s.AddDocuments(ctx, []*Chunk{chunk}, [][]float32{{1, 0, 0}}))

	with, err := s.Search(ctx, []float32{1, 0, 0}, VectorSearchOptions{Limit: 1, IncludeMetadata: true})
	require.NoError(t, err)
	require.Len(t, with, 1)
	assert.Equal(t, "test.md", with[0].Chunk.Metadata["source"])

	without, err := s.Search(ctx, []float32{1, 0, 0}, VectorSearchOptions{Limit: 1, IncludeMetadata: false})
	require.NoError(t, err)
	require.Len(t, without, 1)
	assert.Nil(t, without[0].Chunk.Metadata)
}

func TestHNSWStore_EmptySearch(t *testing.T) {
	s := newTestVectorStore(t, 3)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, VectorSearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_UpdateExistingID(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	chunk := NewChunk("original", nil)
	require.NoError(t, s.AddDocuments(ctx, []*Chunk{chunk}, [][]float32{{1, 0, 0}}))

	updated := &Chunk{ID: chunk.ID, Content: "updated"}
	require.NoError(t, s.AddDocuments(ctx, []*Chunk{updated}, [][]float32{{0, 1, 0}}))

	// Count reflects valid IDs, not lazily orphaned graph nodes.
	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{0, 1, 0}, VectorSearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated", results[0].Chunk.Content)
}

func TestHNSWStore_Clear(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx, []*Chunk{NewChunk("doc", nil)}, [][]float32{{1, 0, 0}}))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, 0, s.Count())
	results, err := s.Search(ctx, []float32{1, 0, 0}, VectorSearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s := newTestVectorStore(t, 3)
	chunk := NewChunk("persisted", map[string]string{"source": "a.md"})
	require.NoError(t, s.AddDocuments(ctx, []*Chunk{chunk}, [][]float32{{1, 0, 0}}))
	require.NoError(t, s.Save(path))

	dims, err := ReadStoredDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)

	loaded, err := NewHNSWStore(DefaultVectorStoreConfig(3))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 1, loaded.Count())
	results, err := loaded.Search(ctx, []float32{1, 0, 0}, VectorSearchOptions{Limit: 1, IncludeMetadata: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].Chunk.Content)
	assert.Equal(t, "a.md", results[0].Chunk.Metadata["source"])

	chunks := loaded.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, chunk.ID, chunks[0].ID)
}

func TestHNSWStore_GetStats(t *testing.T) {
	s := newTestVectorStore(t, 3)
	require.NoError(t, s.AddDocuments(context.Background(),
		[]*Chunk{NewChunk("doc", nil)}, [][]float32{{1, 0, 0}}))

	stats := s.GetStats()
	assert.Equal(t, 1, stats["document_count"])
	assert.Equal(t, 3, stats["dimensions"])
	assert.Equal(t, "cos", stats["metric"])
}
