package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
)

func newTestIndex(t *testing.T, contents ...string) *MemorySparseIndex {
	t.Helper()

	idx := NewMemorySparseIndex(DefaultBM25Config())
	t.Cleanup(func() { _ = idx.Close() })

	chunks := make([]*Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = NewChunk(c, nil)
	}
	require.NoError(t, idx.AddDocuments(context.Background(), chunks))
	return idx
}

func TestMemorySparseIndex_CatMat(t *testing.T) {
	// Given: two chunks, only the first containing the query terms
	idx := newTestIndex(t,
		"the cat sat on the mat",
		"dogs are loyal companions",
	)

	// When: searching for "cat mat"
	results, err := idx.Search(context.Background(), "cat mat", 10)
	require.NoError(t, err)

	// Then: only the cat chunk matches, ranked first with positive score
	require.Len(t, results, 1)
	assert.Equal(t, "the cat sat on the mat", results[0].Chunk.Content)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.ElementsMatch(t, []string{"cat", "mat"}, results[0].MatchedTerms)
}

func TestMemorySparseIndex_EmptyIndexSearch(t *testing.T) {
	idx := NewMemorySparseIndex(DefaultBM25Config())
	defer idx.Close()

	results, err := idx.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySparseIndex_FailedBatchLeavesNoTrace(t *testing.T) {
	idx := NewMemorySparseIndex(DefaultBM25Config())
	defer idx.Close()
	ctx := context.Background()

	// The whitespace-only chunk cannot be tokenized, so the whole
	// batch must be rejected, including the valid chunk before it.
	err := idx.AddDocuments(ctx, []*Chunk{
		NewChunk("the cat sat on the mat", nil),
		NewChunk("   ", nil),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(err))

	assert.Equal(t, 0, idx.DocumentCount())
	results, err := idx.Search(ctx, "cat mat", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// A later valid batch indexes cleanly without resurrecting
	// anything from the rejected one.
	require.NoError(t, idx.AddDocuments(ctx, []*Chunk{
		NewChunk("dogs are loyal companions", nil),
	}))
	assert.Equal(t, 1, idx.DocumentCount())

	results, err = idx.Search(ctx, "cat mat", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySparseIndex_UnknownTokens(t *testing.T) {
	idx := newTestIndex(t, "the cat sat on the mat")

	results, err := idx.Search(context.Background(), "quantum entanglement", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySparseIndex_EmptyQueryIsValidationError(t *testing.T) {
	idx := newTestIndex(t, "some document text here")

	_, err := idx.Search(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, errors.ErrCodeQueryEmpty, errors.GetCode(err))
}

func TestMemorySparseIndex_StopwordOnlyQueryIsNotAnError(t *testing.T) {
	idx := newTestIndex(t, "some document text here")

	// Distinct from the empty-string case: tokens exist but none
	// survive preprocessing.
	results, err := idx.Search(context.Background(), "the of and", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySparseIndex_RanksAndScores(t *testing.T) {
	idx := newTestIndex(t,
		"go is a compiled language with garbage collection",
		"go routines make concurrency in go straightforward",
		"rust is a compiled language without garbage collection",
		"python is interpreted",
	)

	results, err := idx.Search(context.Background(), "go concurrency", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
	// The doc mentioning both terms ranks first.
	assert.Contains(t, results[0].Chunk.Content, "concurrency")
}

func TestMemorySparseIndex_TopKTruncation(t *testing.T) {
	idx := newTestIndex(t,
		"cats like sleeping",
		"cats like hunting",
		"cats like climbing",
	)

	results, err := idx.Search(context.Background(), "cats", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemorySparseIndex_IncrementalAdd(t *testing.T) {
	idx := newTestIndex(t, "first document about gophers")
	require.Equal(t, 1, idx.DocumentCount())

	require.NoError(t, idx.AddDocuments(context.Background(),
		[]*Chunk{NewChunk("second document about ferrets", nil)}))
	assert.Equal(t, 2, idx.DocumentCount())

	results, err := idx.Search(context.Background(), "ferrets", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestMemorySparseIndex_ClearResetsWithoutDestroying(t *testing.T) {
	idx := newTestIndex(t, "document to be cleared")

	require.NoError(t, idx.Clear(context.Background()))
	assert.Equal(t, 0, idx.DocumentCount())

	// Index object survives clear and accepts new documents.
	require.NoError(t, idx.AddDocuments(context.Background(),
		[]*Chunk{NewChunk("fresh document after clear", nil)}))
	assert.Equal(t, 1, idx.DocumentCount())
}

func TestMemorySparseIndex_Stats(t *testing.T) {
	idx := newTestIndex(t,
		"the cat sat on the mat",
		"dogs are loyal companions",
	)

	stats := idx.Stats()
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Greater(t, stats.TermCount, 0)
	assert.Greater(t, stats.AvgDocLength, 0.0)
}

func TestNormalizeBM25Score(t *testing.T) {
	// Fixed compatibility constant: min(raw/10, 1).
	assert.InDelta(t, 0.25, NormalizeBM25Score(2.5), 1e-9)
	assert.Equal(t, 1.0, NormalizeBM25Score(15.0))
	assert.Equal(t, 0.0, NormalizeBM25Score(0.0))
}
