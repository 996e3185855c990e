package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
)

func newTestBleveIndex(t *testing.T, contents ...string) *BleveSparseIndex {
	t.Helper()

	idx, err := NewBleveSparseIndex("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	chunks := make([]*Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = NewChunk(c, nil)
	}
	require.NoError(t, idx.AddDocuments(context.Background(), chunks))
	return idx
}

func TestBleveSparseIndex_AddAndSearch(t *testing.T) {
	idx := newTestBleveIndex(t,
		"the cat sat on the mat",
		"dogs are loyal companions",
	)

	results, err := idx.Search(context.Background(), "cat mat", 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "the cat sat on the mat", results[0].Chunk.Content)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.ElementsMatch(t, []string{"cat", "mat"}, results[0].MatchedTerms)
}

func TestBleveSparseIndex_EmptyQuery(t *testing.T) {
	idx := newTestBleveIndex(t, "the cat sat on the mat")

	_, err := idx.Search(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, errors.ErrCodeQueryEmpty, errors.GetCode(err))
}

func TestBleveSparseIndex_StopwordOnlyQuery(t *testing.T) {
	idx := newTestBleveIndex(t, "the cat sat on the mat")

	results, err := idx.Search(context.Background(), "the of an", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveSparseIndex_TopKLimit(t *testing.T) {
	idx := newTestBleveIndex(t,
		"ranking functions score documents",
		"scoring documents by term weight",
		"documents hold terms of all kinds",
	)

	results, err := idx.Search(context.Background(), "documents", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBleveSparseIndex_MetadataRoundTrip(t *testing.T) {
	idx, err := NewBleveSparseIndex("", DefaultBM25Config())
	require.NoError(t, err)
	defer idx.Close()

	chunk := NewChunk("rank fusion merges result lists", map[string]string{
		"source":  "fusion.md",
		"section": "Fusion",
	})
	require.NoError(t, idx.AddDocuments(context.Background(), []*Chunk{chunk}))

	results, err := idx.Search(context.Background(), "fusion", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fusion.md", results[0].Chunk.Metadata["source"])
	assert.Equal(t, "Fusion", results[0].Chunk.Metadata["section"])

	got, ok := idx.Get(chunk.ID)
	require.True(t, ok)
	assert.Same(t, chunk, got)
}

func TestBleveSparseIndex_Clear(t *testing.T) {
	idx := newTestBleveIndex(t,
		"the cat sat on the mat",
		"dogs are loyal companions",
	)
	require.Equal(t, 2, idx.DocumentCount())

	require.NoError(t, idx.Clear(context.Background()))

	assert.Equal(t, 0, idx.DocumentCount())
	results, err := idx.Search(context.Background(), "cat", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveSparseIndex_ClosedIndexRejectsOperations(t *testing.T) {
	idx := newTestBleveIndex(t, "the cat sat on the mat")
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), "cat", 10)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchFailed, errors.GetCode(err))

	err = idx.AddDocuments(context.Background(), []*Chunk{NewChunk("more text here", nil)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(err))

	// Closing twice is a no-op.
	assert.NoError(t, idx.Close())
}

func TestBleveSparseIndex_ReopenRestoresChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.bleve")

	idx, err := NewBleveSparseIndex(path, DefaultBM25Config())
	require.NoError(t, err)

	chunk := NewChunk("persistent indexes survive restarts", map[string]string{
		"source": "persist.md",
	})
	chunk.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, idx.AddDocuments(context.Background(), []*Chunk{chunk}))
	require.NoError(t, idx.Close())

	reopened, err := NewBleveSparseIndex(path, DefaultBM25Config())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 1, reopened.DocumentCount())

	results, err := reopened.Search(context.Background(), "persistent restarts", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunk.ID, results[0].Chunk.ID)
	assert.Equal(t, "persistent indexes survive restarts", results[0].Chunk.Content)
	assert.Equal(t, "persist.md", results[0].Chunk.Metadata["source"])
	assert.True(t, chunk.CreatedAt.Equal(results[0].Chunk.CreatedAt))
}
