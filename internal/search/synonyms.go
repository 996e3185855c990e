package search

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SynonymSource looks up lexical variants for a single word. Sources
// may be backed by a static lexicon or an external service; lookup
// failures are treated by callers as "no synonyms", never as fatal.
type SynonymSource interface {
	Synonyms(word string) ([]string, error)
}

// StaticSynonyms is the built-in lexicon. It covers common general
// vocabulary so expansion works with no external service.
type StaticSynonyms struct {
	lexicon map[string][]string
}

// NewStaticSynonyms returns the built-in lexicon, optionally extended
// by extra entries. Extra entries override built-in ones per word.
func NewStaticSynonyms(extra map[string][]string) *StaticSynonyms {
	lexicon := make(map[string][]string, len(builtinLexicon)+len(extra))
	for w, syns := range builtinLexicon {
		lexicon[w] = syns
	}
	for w, syns := range extra {
		lexicon[w] = syns
	}
	return &StaticSynonyms{lexicon: lexicon}
}

// Synonyms returns the variants for a word, or nil if unknown.
func (s *StaticSynonyms) Synonyms(word string) ([]string, error) {
	return s.lexicon[word], nil
}

var _ SynonymSource = (*StaticSynonyms)(nil)

// CachedSynonyms wraps a SynonymSource with a per-word LRU cache.
// Lookup errors are logged and cached as empty so a flaky source is
// consulted at most once per word per cache lifetime.
type CachedSynonyms struct {
	source SynonymSource
	cache  *lru.Cache[string, []string]
}

// NewCachedSynonyms wraps a source with an LRU cache.
func NewCachedSynonyms(source SynonymSource, cacheSize int) *CachedSynonyms {
	if cacheSize <= 0 {
		cacheSize = DefaultExpansionConfig().SynonymCacheSize
	}
	cache, _ := lru.New[string, []string](cacheSize)
	return &CachedSynonyms{source: source, cache: cache}
}

// Synonyms returns cached variants, consulting the source on a miss.
func (c *CachedSynonyms) Synonyms(word string) ([]string, error) {
	if syns, ok := c.cache.Get(word); ok {
		return syns, nil
	}

	syns, err := c.source.Synonyms(word)
	if err != nil {
		slog.Debug("synonym_lookup_failed",
			slog.String("word", word),
			slog.String("error", err.Error()))
		syns = nil
	}
	c.cache.Add(word, syns)
	return syns, nil
}

var _ SynonymSource = (*CachedSynonyms)(nil)

// builtinLexicon holds the static synonym entries.
var builtinLexicon = map[string][]string{
	"fast":      {"quick", "rapid", "speedy"},
	"slow":      {"sluggish", "gradual"},
	"big":       {"large", "huge", "enormous"},
	"small":     {"little", "tiny", "compact"},
	"good":      {"great", "excellent", "solid"},
	"bad":       {"poor", "faulty", "broken"},
	"new":       {"recent", "latest", "modern"},
	"old":       {"legacy", "outdated", "previous"},
	"error":     {"failure", "fault", "bug"},
	"fix":       {"repair", "resolve", "patch"},
	"build":     {"compile", "construct", "assemble"},
	"delete":    {"remove", "erase", "drop"},
	"create":    {"make", "generate", "produce"},
	"find":      {"locate", "search", "discover"},
	"show":      {"display", "list", "present"},
	"start":     {"begin", "launch", "run"},
	"stop":      {"halt", "terminate", "end"},
	"change":    {"modify", "update", "alter"},
	"document":  {"file", "record", "paper"},
	"question":  {"query", "inquiry"},
	"answer":    {"response", "reply", "solution"},
	"important": {"critical", "essential", "key"},
	"method":    {"approach", "technique", "procedure"},
	"problem":   {"issue", "difficulty", "challenge"},
	"result":    {"outcome", "output", "consequence"},
	"car":       {"automobile", "vehicle"},
	"house":     {"home", "residence"},
	"buy":       {"purchase", "acquire"},
	"cheap":     {"inexpensive", "affordable"},
	"expensive": {"costly", "pricey"},
}
