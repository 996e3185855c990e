package store

import (
	"regexp"
	"strings"

	"github.com/riptide-search/riptide/internal/errors"
)

// letterRuns matches maximal runs of ASCII letters. Everything else is
// a separator, never part of a token.
var letterRuns = regexp.MustCompile(`[a-zA-Z]+`)

// EnglishStopWords is the fixed stopword set dropped during
// tokenization (~60 common English words).
var EnglishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
	"can", "did", "do", "does", "for", "from", "had", "has", "have",
	"he", "her", "his", "how", "i", "if", "in", "into", "is", "it",
	"its", "me", "my", "no", "not", "of", "on", "or", "our", "she",
	"so", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "to", "was", "we", "were", "what", "when", "where",
	"which", "who", "will", "with", "you", "your",
}

// Tokenizer normalizes raw text into a token sequence for lexical
// indexing. Steps, in order: optional lowercasing, ASCII letter-run
// extraction, minimum-length filtering, stopword filtering.
type Tokenizer struct {
	lowercase      bool
	minTokenLength int
	stopWords      map[string]struct{}
}

// NewTokenizer creates a tokenizer from BM25 configuration.
func NewTokenizer(config BM25Config) *Tokenizer {
	minLen := config.MinTokenLength
	if minLen <= 0 {
		minLen = 2
	}
	return &Tokenizer{
		lowercase:      config.Lowercase,
		minTokenLength: minLen,
		stopWords:      BuildStopWordMap(config.StopWords),
	}
}

// Preprocess tokenizes text for indexing. Empty or whitespace-only
// input is a validation error; indexing requires tokenizable content.
// For search queries use PreprocessQuery instead.
func (t *Tokenizer) Preprocess(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation(errors.ErrCodeInvalidInput, "cannot tokenize empty text")
	}
	return t.tokenize(text), nil
}

// PreprocessQuery tokenizes a search query. Unlike Preprocess, empty
// input yields an empty token list rather than an error: a query with
// no surviving tokens simply matches nothing.
func (t *Tokenizer) PreprocessQuery(query string) []string {
	if strings.TrimSpace(query) == "" {
		return []string{}
	}
	return t.tokenize(query)
}

func (t *Tokenizer) tokenize(text string) []string {
	if t.lowercase {
		text = strings.ToLower(text)
	}

	runs := letterRuns.FindAllString(text, -1)
	tokens := make([]string, 0, len(runs))
	for _, run := range runs {
		if len(run) < t.minTokenLength {
			continue
		}
		if _, isStop := t.stopWords[strings.ToLower(run)]; isStop {
			continue
		}
		tokens = append(tokens, run)
	}
	return tokens
}

// BuildStopWordMap converts a slice of stop words to a map for
// efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// IsStopWord reports whether the word is in the default English
// stopword set. Used by query expansion and HyDE term extraction.
func IsStopWord(word string) bool {
	_, ok := defaultStopWordSet[strings.ToLower(word)]
	return ok
}

var defaultStopWordSet = BuildStopWordMap(EnglishStopWords)
