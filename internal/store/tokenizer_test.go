package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
)

func TestTokenizer_Preprocess(t *testing.T) {
	tok := NewTokenizer(DefaultBM25Config())

	// Non-letters are separators, stopwords and short tokens drop out.
	tokens, err := tok.Preprocess("The cat, sat on a mat-42!")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "sat", "mat"}, tokens)
}

func TestTokenizer_PreprocessEmptyInput(t *testing.T) {
	tok := NewTokenizer(DefaultBM25Config())

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := tok.Preprocess(input)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	}
}

func TestTokenizer_PreprocessQueryNeverErrors(t *testing.T) {
	tok := NewTokenizer(DefaultBM25Config())

	// Queries degrade to empty token lists instead of failing.
	assert.Empty(t, tok.PreprocessQuery(""))
	assert.Empty(t, tok.PreprocessQuery("the of and"))
	assert.Equal(t, []string{"gopher"}, tok.PreprocessQuery("the gopher"))
}

func TestTokenizer_MinTokenLength(t *testing.T) {
	cfg := DefaultBM25Config()
	cfg.MinTokenLength = 4

	tok := NewTokenizer(cfg)
	tokens, err := tok.Preprocess("big dogs bark loudly")
	require.NoError(t, err)
	assert.Equal(t, []string{"dogs", "bark", "loudly"}, tokens)
}

func TestTokenizer_CaseSensitive(t *testing.T) {
	cfg := DefaultBM25Config()
	cfg.Lowercase = false

	tok := NewTokenizer(cfg)
	tokens, err := tok.Preprocess("Gopher gopher")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gopher", "gopher"}, tokens)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("and"))
	assert.False(t, IsStopWord("gopher"))
}
