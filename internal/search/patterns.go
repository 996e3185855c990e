package search

import "regexp"

// Recommendation keys produced by the classifier.
const (
	RecDenseWeight    = "dense_retrieval_weight"
	RecSparseWeight   = "sparse_retrieval_weight"
	RecQueryExpansion = "query_expansion"
	RecHyDE           = "hyde"
	RecMultiQuery     = "multi_query"
	RecReranking      = "reranking"
)

// Structural scoring bonuses. Their sum is the 0.3 term in the
// confidence denominator.
const (
	questionMarkBonus = 0.15
	whWordBonus       = 0.15

	shortQueryWords = 6
	longQueryWords  = 12
)

// typePatterns are the built-in regex groups per query type. Callers
// can extend these per classifier instance with WithCustomPatterns.
var typePatterns = map[QueryType][]*regexp.Regexp{
	QueryTypeFactual: {
		regexp.MustCompile(`(?i)^(what|who|when|where|which)\b`),
		regexp.MustCompile(`(?i)\b(define|definition of|meaning of)\b`),
		regexp.MustCompile(`(?i)\b(capital|population|author|date|year|name) of\b`),
	},
	QueryTypeConceptual: {
		regexp.MustCompile(`(?i)\b(concept|theory|principle|idea)s? (of|behind)\b`),
		regexp.MustCompile(`(?i)\b(explain|understand|significance of)\b`),
		regexp.MustCompile(`(?i)\brelationship between\b`),
	},
	QueryTypeProcedural: {
		regexp.MustCompile(`(?i)^how (do|to|can|should|would)\b`),
		regexp.MustCompile(`(?i)\b(steps?|guide|tutorial|instructions?) (to|for|on)\b`),
		regexp.MustCompile(`(?i)\b(set ?up|install|configure|deploy|migrate)\b`),
	},
	QueryTypeComparative: {
		regexp.MustCompile(`(?i)\b(vs\.?|versus)\b`),
		regexp.MustCompile(`(?i)\b(compare|comparison|difference between)\b`),
		regexp.MustCompile(`(?i)\b(better|worse|faster|slower|cheaper) than\b`),
	},
	QueryTypeExploratory: {
		regexp.MustCompile(`(?i)^why\b`),
		regexp.MustCompile(`(?i)\b(tell me about|overview of|introduction to)\b`),
		regexp.MustCompile(`(?i)\b(explore|learn about|research on)\b`),
	},
	QueryTypeTechnical: {
		regexp.MustCompile(`(?i)\b(error|exception|stack trace|traceback|panic)\b`),
		regexp.MustCompile(`(?i)\b(api|sdk|cli|http|json|yaml|sql|regex)\b`),
		regexp.MustCompile(`(?i)\b(function|method|struct|interface|compile|debug)\b`),
	},
}

// typeKeywords are the built-in keyword sets per query type, matched
// against lowercased query tokens.
var typeKeywords = map[QueryType][]string{
	QueryTypeFactual: {
		"what", "who", "when", "where", "which", "define", "definition",
		"fact", "capital", "date", "name", "list",
	},
	QueryTypeConceptual: {
		"concept", "theory", "principle", "explain", "understand",
		"meaning", "idea", "framework", "philosophy", "significance",
	},
	QueryTypeProcedural: {
		"how", "steps", "guide", "tutorial", "install", "configure",
		"setup", "build", "create", "make", "implement", "deploy",
	},
	QueryTypeComparative: {
		"versus", "vs", "compare", "comparison", "difference", "better",
		"worse", "best", "alternative", "tradeoff", "pros", "cons",
	},
	QueryTypeExploratory: {
		"why", "overview", "introduction", "about", "explore", "learn",
		"research", "history", "background", "trends",
	},
	QueryTypeTechnical: {
		"error", "bug", "api", "code", "function", "debug", "exception",
		"stack", "library", "version", "deprecated", "crash",
	},
}

// whWordRouting assigns the WH-word start bonus to the type the word
// most strongly signals.
var whWordRouting = map[string]QueryType{
	"what":  QueryTypeFactual,
	"who":   QueryTypeFactual,
	"when":  QueryTypeFactual,
	"where": QueryTypeFactual,
	"which": QueryTypeFactual,
	"how":   QueryTypeProcedural,
	"why":   QueryTypeExploratory,
}

// questionMarkTypes receive the question-mark bonus. Conceptual and
// technical queries are as often statements as questions.
var questionMarkTypes = map[QueryType]bool{
	QueryTypeFactual:     true,
	QueryTypeProcedural:  true,
	QueryTypeComparative: true,
	QueryTypeExploratory: true,
}

// recommendationTable maps each query type to its base strategy
// weights. Values are scaled by the final confidence before being
// returned to callers.
var recommendationTable = map[QueryType]map[string]float64{
	QueryTypeFactual: {
		RecDenseWeight:    0.4,
		RecSparseWeight:   0.8,
		RecQueryExpansion: 0.3,
		RecHyDE:           0.2,
		RecMultiQuery:     0.2,
		RecReranking:      0.5,
	},
	QueryTypeConceptual: {
		RecDenseWeight:    0.8,
		RecSparseWeight:   0.4,
		RecQueryExpansion: 0.5,
		RecHyDE:           0.7,
		RecMultiQuery:     0.4,
		RecReranking:      0.6,
	},
	QueryTypeProcedural: {
		RecDenseWeight:    0.7,
		RecSparseWeight:   0.5,
		RecQueryExpansion: 0.4,
		RecHyDE:           0.6,
		RecMultiQuery:     0.5,
		RecReranking:      0.5,
	},
	QueryTypeComparative: {
		RecDenseWeight:    0.7,
		RecSparseWeight:   0.6,
		RecQueryExpansion: 0.5,
		RecHyDE:           0.4,
		RecMultiQuery:     0.8,
		RecReranking:      0.7,
	},
	QueryTypeExploratory: {
		RecDenseWeight:    0.8,
		RecSparseWeight:   0.3,
		RecQueryExpansion: 0.7,
		RecHyDE:           0.8,
		RecMultiQuery:     0.6,
		RecReranking:      0.4,
	},
	QueryTypeTechnical: {
		RecDenseWeight:    0.5,
		RecSparseWeight:   0.9,
		RecQueryExpansion: 0.2,
		RecHyDE:           0.3,
		RecMultiQuery:     0.3,
		RecReranking:      0.6,
	},
}

// allQueryTypes is the iteration order for deterministic scoring.
var allQueryTypes = []QueryType{
	QueryTypeFactual,
	QueryTypeConceptual,
	QueryTypeProcedural,
	QueryTypeComparative,
	QueryTypeExploratory,
	QueryTypeTechnical,
}
