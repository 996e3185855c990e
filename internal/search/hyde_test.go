package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	riperrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/llm"
)

// scriptedProvider returns canned responses and counts calls.
type scriptedProvider struct {
	responses []string
	calls     int
	err       error
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return fmt.Sprintf("canned response %d", p.calls), nil
	}
	return p.responses[(p.calls-1)%len(p.responses)], nil
}

func (p *scriptedProvider) ModelName() string { return "scripted" }
func (p *scriptedProvider) Close() error      { return nil }

func TestNewHyDEGenerator_RequiresProvider(t *testing.T) {
	_, err := NewHyDEGenerator(DefaultHyDEConfig(), nil)
	require.Error(t, err)
	assert.True(t, riperrors.IsValidation(err))
}

func TestHyDEGenerator_EmptyQuery(t *testing.T) {
	g, err := NewHyDEGenerator(DefaultHyDEConfig(), &scriptedProvider{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, riperrors.ErrCodeQueryEmpty, riperrors.GetCode(err))
}

func TestHyDEGenerator_GeneratesConfiguredCount(t *testing.T) {
	provider := &scriptedProvider{}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 2
	g, err := NewHyDEGenerator(cfg, provider)
	require.NoError(t, err)

	docs, err := g.Generate(context.Background(), "what is bm25?")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, 2, provider.calls)
}

func TestHyDEGenerator_CacheHitSkipsProvider(t *testing.T) {
	provider := &scriptedProvider{}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 1
	g, err := NewHyDEGenerator(cfg, provider)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := g.Generate(ctx, "what is bm25?")
	require.NoError(t, err)
	second, err := g.Generate(ctx, "what is bm25?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestHyDEGenerator_TTLExpiry(t *testing.T) {
	provider := &scriptedProvider{}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 1
	cfg.CacheTTL = time.Minute

	current := time.Unix(1_700_000_000, 0)
	g, err := NewHyDEGenerator(cfg, provider, WithClock(func() time.Time { return current }))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.Generate(ctx, "what is bm25?")
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	// Still fresh just inside the TTL.
	current = current.Add(59 * time.Second)
	_, err = g.Generate(ctx, "what is bm25?")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	// Expired entries are regenerated.
	current = current.Add(2 * time.Minute)
	_, err = g.Generate(ctx, "what is bm25?")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestHyDEGenerator_TruncatesToMaxLength(t *testing.T) {
	long := "BM25 is a ranking function used by search engines to estimate document relevance for a query."
	provider := &scriptedProvider{responses: []string{long}}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 1
	cfg.MaxLength = 20
	g, err := NewHyDEGenerator(cfg, provider)
	require.NoError(t, err)

	docs, err := g.Generate(context.Background(), "what is bm25?")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0], 20)
}

func TestHyDEGenerator_SkipsBlankResponses(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"   "}}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 2
	g, err := NewHyDEGenerator(cfg, provider)
	require.NoError(t, err)

	docs, err := g.Generate(context.Background(), "what is bm25?")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestHyDEGenerator_ProviderErrorWrapped(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("model unavailable")}
	g, err := NewHyDEGenerator(DefaultHyDEConfig(), provider)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "what is bm25?")
	require.Error(t, err)
	assert.True(t, riperrors.IsRetrieval(err))
	assert.Equal(t, riperrors.ErrCodeGenerationFailed, riperrors.GetCode(err))
}

func TestHyDEGenerator_GenerateEnhancedQuery(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"Okapi ranking functions weigh term saturation against document length. Later sentences are ignored.",
	}}
	cfg := DefaultHyDEConfig()
	cfg.NumHypotheticals = 1
	g, err := NewHyDEGenerator(cfg, provider)
	require.NoError(t, err)

	enhanced, err := g.GenerateEnhancedQuery(context.Background(), "what is ranking?")
	require.NoError(t, err)

	// Original terms first, then salient new terms from the first
	// sentence only, capped and deduplicated.
	assert.Equal(t, "what is ranking? okapi functions weigh term saturation", enhanced)
}
