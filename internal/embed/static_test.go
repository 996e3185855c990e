package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"how does vector search work"})
	require.NoError(t, err)
	second, err := e.Embed(ctx, []string{"how does vector search work"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder()

	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, StaticDimensions)
	}
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestStaticEmbedder_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder()

	vectors, err := e.Embed(context.Background(), []string{
		"database index configuration",
		"the quick brown fox",
		"",
	})
	require.NoError(t, err)

	for i, v := range vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum == 0 {
			// Empty text produces an all-zero vector, which
			// normalization leaves untouched.
			continue
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4, "vector %d", i)
	}
}

func TestStaticEmbedder_DistinctTexts(t *testing.T) {
	e := NewStaticEmbedder()

	vectors, err := e.Embed(context.Background(), []string{"alpha beta", "gamma delta"})
	require.NoError(t, err)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestStaticEmbedder_SharedKeywordsAreCloser(t *testing.T) {
	e := NewStaticEmbedder()

	vectors, err := e.Embed(context.Background(), []string{
		"search the document index",
		"searching documents in the index",
		"bake a chocolate cake",
	})
	require.NoError(t, err)

	related := cosine(vectors[0], vectors[1])
	unrelated := cosine(vectors[0], vectors[2])
	assert.Greater(t, related, unrelated)
}

func TestStaticEmbedder_EmptyBatch(t *testing.T) {
	e := NewStaticEmbedder()

	_, err := e.Embed(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
