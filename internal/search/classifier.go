package search

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/riptide-search/riptide/internal/errors"
)

// RuleClassifier assigns an intent type to queries using regex
// patterns, keyword overlap and structural features. It holds no
// network dependencies, so classification is cheap enough to run on
// every search call.
type RuleClassifier struct {
	config   ClassifierConfig
	patterns map[QueryType][]*regexp.Regexp
	cache    *lru.Cache[string, *ClassificationResult]
}

// ClassifierOption customizes a RuleClassifier.
type ClassifierOption func(*RuleClassifier)

// WithCustomPatterns appends caller-supplied patterns to the built-in
// group for the given query type.
func WithCustomPatterns(queryType QueryType, patterns ...*regexp.Regexp) ClassifierOption {
	return func(c *RuleClassifier) {
		c.patterns[queryType] = append(c.patterns[queryType], patterns...)
	}
}

// NewRuleClassifier creates a classifier with the built-in rule tables.
func NewRuleClassifier(config ClassifierConfig, opts ...ClassifierOption) *RuleClassifier {
	if config.PatternWeight <= 0 && config.KeywordWeight <= 0 && config.LengthWeight <= 0 {
		config = DefaultClassifierConfig()
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultClassifierConfig().MinConfidence
	}

	c := &RuleClassifier{
		config:   config,
		patterns: make(map[QueryType][]*regexp.Regexp, len(typePatterns)),
	}
	for qt, group := range typePatterns {
		c.patterns[qt] = append([]*regexp.Regexp(nil), group...)
	}
	for _, opt := range opts {
		opt(c)
	}

	if config.CacheSize > 0 {
		c.cache, _ = lru.New[string, *ClassificationResult](config.CacheSize)
	}
	return c
}

// Classify determines the query type and recommended strategy weights.
func (c *RuleClassifier) Classify(query string) (*ClassificationResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errors.Validation(errors.ErrCodeQueryEmpty, "cannot classify empty query")
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(trimmed); ok {
			return cached, nil
		}
	}

	lower := strings.ToLower(trimmed)
	words := strings.Fields(lower)
	hasQuestionMark := strings.HasSuffix(trimmed, "?")
	firstWord := strings.Trim(words[0], "?!.,")
	whTarget, startsWithWH := whWordRouting[firstWord]

	scores := c.scoreTypes(lower, words, hasQuestionMark, whTarget, startsWithWH)

	best := QueryTypeConceptual
	bestScore := -1.0
	for _, qt := range allQueryTypes {
		if scores[qt] > bestScore {
			best = qt
			bestScore = scores[qt]
		}
	}

	maxPossible := c.config.PatternWeight + c.config.KeywordWeight + c.config.LengthWeight +
		questionMarkBonus + whWordBonus
	confidence := bestScore / maxPossible
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	}

	// Below the confidence floor, conceptual is the safe default: it
	// routes toward dense retrieval, which degrades most gracefully on
	// ambiguous queries.
	if confidence < c.config.MinConfidence {
		best = QueryTypeConceptual
		confidence = c.config.MinConfidence
	}

	result := &ClassificationResult{
		QueryType:  best,
		Confidence: confidence,
		Features: map[string]float64{
			"word_count":     float64(len(words)),
			"question_mark":  boolFeature(hasQuestionMark),
			"wh_word_start":  boolFeature(startsWithWH),
			"winning_score":  bestScore,
			"max_type_score": maxPossible,
		},
		Recommendations: scaleRecommendations(recommendationTable[best], confidence),
	}

	if c.cache != nil {
		c.cache.Add(trimmed, result)
	}
	return result, nil
}

// scoreTypes computes the raw score for every query type.
func (c *RuleClassifier) scoreTypes(lower string, words []string, hasQuestionMark bool, whTarget QueryType, startsWithWH bool) map[QueryType]float64 {
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, "?!.,;:")] = struct{}{}
	}

	patternMatches := make(map[QueryType]int, len(allQueryTypes))
	keywordMatches := make(map[QueryType]int, len(allQueryTypes))
	maxPattern, maxKeyword := 0, 0

	for _, qt := range allQueryTypes {
		for _, re := range c.patterns[qt] {
			if re.MatchString(lower) {
				patternMatches[qt]++
			}
		}
		for _, kw := range typeKeywords[qt] {
			if _, ok := wordSet[kw]; ok {
				keywordMatches[qt]++
			}
		}
		if patternMatches[qt] > maxPattern {
			maxPattern = patternMatches[qt]
		}
		if keywordMatches[qt] > maxKeyword {
			maxKeyword = keywordMatches[qt]
		}
	}

	scores := make(map[QueryType]float64, len(allQueryTypes))
	for _, qt := range allQueryTypes {
		var score float64
		if maxPattern > 0 {
			score += c.config.PatternWeight * float64(patternMatches[qt]) / float64(maxPattern)
		}
		if maxKeyword > 0 {
			score += c.config.KeywordWeight * float64(keywordMatches[qt]) / float64(maxKeyword)
		}
		scores[qt] = score
	}

	// Short queries tend to be lookups; long queries tend to be
	// open-ended.
	switch {
	case len(words) <= shortQueryWords:
		scores[QueryTypeFactual] += c.config.LengthWeight
	case len(words) >= longQueryWords:
		scores[QueryTypeConceptual] += c.config.LengthWeight
		scores[QueryTypeExploratory] += c.config.LengthWeight
	}

	if hasQuestionMark {
		for qt := range questionMarkTypes {
			scores[qt] += questionMarkBonus
		}
	}
	if startsWithWH {
		scores[whTarget] += whWordBonus
	}

	return scores
}

// scaleRecommendations multiplies each base weight by the confidence.
func scaleRecommendations(base map[string]float64, confidence float64) map[string]float64 {
	out := make(map[string]float64, len(base))
	for k, v := range base {
		out[k] = v * confidence
	}
	return out
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
