package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/llm"
	"github.com/riptide-search/riptide/internal/store"
)

// hydePromptTemplate asks for a plausible answer passage. The passage
// does not need to be true, only to live near real answers in the
// embedding space.
const hydePromptTemplate = "Write a short informative passage that directly answers the following question. " +
	"Do not add preamble or disclaimers.\n\nQuestion: %s\n\nPassage:"

// maxEnhancedTerms caps how many hypothetical-document terms are added
// to an enhanced query.
const maxEnhancedTerms = 5

type hydeKey struct {
	query     string
	num       int
	maxLength int
}

type hydeEntry struct {
	docs     []string
	storedAt time.Time
}

// HyDEGenerator produces hypothetical answer documents for a query and
// caches them with a TTL. Embedding a hypothetical answer instead of
// the raw question usually lands closer to relevant documents.
type HyDEGenerator struct {
	config   HyDEConfig
	provider llm.Provider
	cache    *lru.Cache[hydeKey, hydeEntry]
	now      func() time.Time
}

// HyDEOption customizes a HyDEGenerator.
type HyDEOption func(*HyDEGenerator)

// WithClock injects the time source used for TTL checks.
func WithClock(now func() time.Time) HyDEOption {
	return func(g *HyDEGenerator) {
		g.now = now
	}
}

// NewHyDEGenerator creates a generator over the given LLM provider.
func NewHyDEGenerator(config HyDEConfig, provider llm.Provider, opts ...HyDEOption) (*HyDEGenerator, error) {
	if provider == nil {
		return nil, errors.Validation(errors.ErrCodeInvalidConfigValue, "hyde generator requires an llm provider")
	}
	d := DefaultHyDEConfig()
	if config.NumHypotheticals <= 0 {
		config.NumHypotheticals = d.NumHypotheticals
	}
	if config.MaxLength <= 0 {
		config.MaxLength = d.MaxLength
	}
	if config.Temperature <= 0 {
		config.Temperature = d.Temperature
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = d.CacheTTL
	}
	if config.CacheSize <= 0 {
		config.CacheSize = d.CacheSize
	}

	cache, _ := lru.New[hydeKey, hydeEntry](config.CacheSize)
	g := &HyDEGenerator{
		config:   config,
		provider: provider,
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns hypothetical answer documents for the query,
// serving from cache when a fresh entry exists.
func (g *HyDEGenerator) Generate(ctx context.Context, query string) ([]string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errors.Validation(errors.ErrCodeQueryEmpty, "cannot generate hypotheticals for empty query")
	}

	key := hydeKey{
		query:     trimmed,
		num:       g.config.NumHypotheticals,
		maxLength: g.config.MaxLength,
	}
	if entry, ok := g.cache.Get(key); ok {
		if g.now().Sub(entry.storedAt) < g.config.CacheTTL {
			return entry.docs, nil
		}
		// Expired entries are misses.
		g.cache.Remove(key)
	}

	prompt := fmt.Sprintf(hydePromptTemplate, trimmed)
	docs := make([]string, 0, g.config.NumHypotheticals)
	for i := 0; i < g.config.NumHypotheticals; i++ {
		text, err := g.provider.Generate(ctx, prompt, llm.GenerateOptions{
			MaxTokens:   g.config.MaxLength,
			Temperature: g.config.Temperature,
		})
		if err != nil {
			return nil, errors.Retrieval(errors.ErrCodeGenerationFailed,
				"generate hypothetical document", err).WithStage("hyde")
		}

		text = strings.TrimSpace(text)
		if len(text) > g.config.MaxLength {
			text = text[:g.config.MaxLength]
		}
		if text != "" {
			docs = append(docs, text)
		}
	}

	g.cache.Add(key, hydeEntry{docs: docs, storedAt: g.now()})
	return docs, nil
}

// GenerateEnhancedQuery augments the query with salient terms from the
// first sentence of each hypothetical document. Original terms come
// first, then up to maxEnhancedTerms new terms in discovery order.
func (g *HyDEGenerator) GenerateEnhancedQuery(ctx context.Context, query string) (string, error) {
	docs, err := g.Generate(ctx, query)
	if err != nil {
		return "", err
	}

	original := strings.Fields(strings.TrimSpace(query))
	seen := make(map[string]struct{}, len(original))
	for _, w := range original {
		seen[strings.ToLower(strings.Trim(w, "?!.,;:"))] = struct{}{}
	}

	added := make([]string, 0, maxEnhancedTerms)
	for _, doc := range docs {
		if len(added) >= maxEnhancedTerms {
			break
		}
		for _, term := range salientTerms(firstSentence(doc)) {
			if len(added) >= maxEnhancedTerms {
				break
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			added = append(added, term)
		}
	}

	parts := append(original, added...)
	return strings.Join(parts, " "), nil
}

// firstSentence returns the text up to and excluding the first
// sentence terminator.
func firstSentence(text string) string {
	if idx := strings.IndexAny(text, ".!?\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}

// salientTerms lowercases, strips punctuation, and keeps non-stopword
// terms longer than three characters.
func salientTerms(sentence string) []string {
	words := strings.Fields(strings.ToLower(sentence))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "?!.,;:\"'()")
		if len(w) <= 3 || store.IsStopWord(w) {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}
