package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

// QueryExpander generates lexical variants of a query by substituting
// synonyms for expandable tokens. Variants widen sparse recall for
// queries whose exact wording does not appear in the corpus.
type QueryExpander struct {
	config   ExpansionConfig
	synonyms SynonymSource
}

// NewQueryExpander creates an expander over the given synonym source.
// The source is wrapped with an LRU cache; pass nil to use the built-in
// static lexicon.
func NewQueryExpander(config ExpansionConfig, source SynonymSource) (*QueryExpander, error) {
	switch config.Strategy {
	case ExpansionAll, ExpansionBest, ExpansionSelective:
	case "":
		config.Strategy = ExpansionSelective
	default:
		return nil, errors.Validation(errors.ErrCodeInvalidConfigValue,
			fmt.Sprintf("unknown expansion strategy %q", config.Strategy))
	}
	if config.MaxExpansions <= 0 {
		config.MaxExpansions = DefaultExpansionConfig().MaxExpansions
	}
	if config.MinWordLength <= 0 {
		config.MinWordLength = DefaultExpansionConfig().MinWordLength
	}
	if source == nil {
		source = NewStaticSynonyms(nil)
	}

	return &QueryExpander{
		config:   config,
		synonyms: NewCachedSynonyms(source, config.SynonymCacheSize),
	}, nil
}

// Expand returns query variants per the configured strategy. The
// original query is prepended when PreserveOriginal is set.
func (e *QueryExpander) Expand(query string) ([]string, error) {
	original := strings.TrimSpace(query)
	if original == "" {
		return nil, errors.Validation(errors.ErrCodeQueryEmpty, "cannot expand empty query")
	}

	words := strings.Fields(original)
	candidates := e.lookupCandidates(words)

	var variants []string
	switch e.config.Strategy {
	case ExpansionAll:
		variants = e.expandAll(words, candidates)
	case ExpansionBest:
		variants = e.expandBest(words, candidates)
	default:
		variants = e.expandSelective(words, candidates)
	}

	variants = dedupeStrings(variants, original)
	if len(variants) > e.config.MaxExpansions {
		variants = variants[:e.config.MaxExpansions]
	}

	if e.config.PreserveOriginal {
		variants = append([]string{original}, variants...)
	}
	return variants, nil
}

// lookupCandidates returns synonyms per word position; nil marks a
// position that is not expandable.
func (e *QueryExpander) lookupCandidates(words []string) [][]string {
	candidates := make([][]string, len(words))
	for i, word := range words {
		lower := strings.ToLower(strings.Trim(word, "?!.,;:"))
		if !e.expandable(lower) {
			continue
		}
		syns, err := e.synonyms.Synonyms(lower)
		if err != nil || len(syns) == 0 {
			continue
		}
		candidates[i] = syns
	}
	return candidates
}

// expandable filters out stopwords, short tokens and tokens with
// digits.
func (e *QueryExpander) expandable(word string) bool {
	if len(word) < e.config.MinWordLength {
		return false
	}
	if store.IsStopWord(word) {
		return false
	}
	for _, r := range word {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// expandAll builds the Cartesian product of original/synonym choices
// per position. The all-original combination is skipped; it equals the
// input query.
func (e *QueryExpander) expandAll(words []string, candidates [][]string) []string {
	variants := make([]string, 0, e.config.MaxExpansions)
	current := make([]string, len(words))

	var walk func(pos int, substituted bool)
	walk = func(pos int, substituted bool) {
		if len(variants) >= e.config.MaxExpansions {
			return
		}
		if pos == len(words) {
			if substituted {
				variants = append(variants, strings.Join(current, " "))
			}
			return
		}

		current[pos] = words[pos]
		walk(pos+1, substituted)
		for _, syn := range candidates[pos] {
			current[pos] = syn
			walk(pos+1, true)
		}
	}
	walk(0, false)
	return variants
}

// expandBest substitutes only the top synonym per expandable token,
// producing one variant per token.
func (e *QueryExpander) expandBest(words []string, candidates [][]string) []string {
	variants := make([]string, 0, len(words))
	for i, syns := range candidates {
		if len(syns) == 0 {
			continue
		}
		variants = append(variants, substitute(words, i, syns[0]))
	}
	return variants
}

// expandSelective substitutes each synonym of each token one at a
// time, producing one variant per substitution.
func (e *QueryExpander) expandSelective(words []string, candidates [][]string) []string {
	var variants []string
	for i, syns := range candidates {
		for _, syn := range syns {
			variants = append(variants, substitute(words, i, syn))
		}
	}
	return variants
}

// substitute replaces the word at position i and joins the result.
func substitute(words []string, i int, replacement string) string {
	out := make([]string, len(words))
	copy(out, words)
	out[i] = replacement
	return strings.Join(out, " ")
}

// dedupeStrings keeps first occurrences, excluding the original query.
func dedupeStrings(variants []string, original string) []string {
	seen := map[string]struct{}{original: {}}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
