// Package search implements the hybrid retrieval pipeline: query
// classification, query expansion, hypothetical document generation,
// dense and sparse branch execution, and rank fusion.
package search

import (
	"time"

	"github.com/riptide-search/riptide/internal/store"
)

// Fusion method names accepted by FusionConfig.Method.
const (
	FusionMethodRRF      = "rrf"
	FusionMethodWeighted = "weighted"
)

// Expansion strategy names accepted by ExpansionConfig.Strategy.
const (
	ExpansionAll       = "all"
	ExpansionBest      = "best"
	ExpansionSelective = "selective"
)

// SearchResult is a scored reference to a document chunk. Scores are
// only comparable across retrieval methods after normalization.
type SearchResult struct {
	Chunk *store.Chunk `json:"chunk"`

	// Score is the relevance score in [0,1] after fusion or
	// normalization.
	Score float64 `json:"score"`

	// Rank is the 1-based position within the returned list.
	Rank int `json:"rank"`

	// Distance is 1 - Score, kept for similarity-search conventions.
	Distance float64 `json:"distance"`

	// Explanation is an optional human-readable note about why the
	// result matched.
	Explanation string `json:"explanation,omitempty"`

	// Metadata carries retrieval annotations such as which branch
	// produced the result.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryType is the intent label assigned by the classifier.
type QueryType string

const (
	QueryTypeFactual     QueryType = "factual"
	QueryTypeConceptual  QueryType = "conceptual"
	QueryTypeProcedural  QueryType = "procedural"
	QueryTypeComparative QueryType = "comparative"
	QueryTypeExploratory QueryType = "exploratory"
	QueryTypeTechnical   QueryType = "technical"
)

// ClassificationResult is the classifier output: the winning type, a
// confidence in [0,1], the structural features that were extracted,
// and per-strategy weight recommendations scaled by confidence.
type ClassificationResult struct {
	QueryType       QueryType          `json:"query_type"`
	Confidence      float64            `json:"confidence"`
	Features        map[string]float64 `json:"features"`
	Recommendations map[string]float64 `json:"recommendations"`
}

// FusionConfig configures the fusion engine.
type FusionConfig struct {
	// Method selects the algorithm: "rrf" or "weighted".
	Method string `yaml:"method"`

	// DenseWeight and SparseWeight are normalized to sum to 1 for
	// weighted fusion.
	DenseWeight  float64 `yaml:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight"`

	// RRFK is the rank smoothing constant for reciprocal rank fusion.
	RRFK float64 `yaml:"rrf_k"`

	// MaxResults truncates the fused list.
	MaxResults int `yaml:"max_results"`
}

// DefaultFusionConfig returns RRF fusion with the standard constants.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Method:       FusionMethodRRF,
		DenseWeight:  0.65,
		SparseWeight: 0.35,
		RRFK:         60.0,
		MaxResults:   100,
	}
}

// HybridConfig configures the hybrid search orchestrator.
type HybridConfig struct {
	// TopKFinal is the size of the final returned list.
	TopKFinal int `yaml:"top_k_final"`

	// BranchTopK is how many results each branch retrieves before
	// fusion.
	BranchTopK int `yaml:"branch_top_k"`

	// DenseThreshold and SparseThreshold drop branch results whose
	// score falls below them.
	DenseThreshold  float64 `yaml:"dense_threshold"`
	SparseThreshold float64 `yaml:"sparse_threshold"`

	// ParallelExecution runs the two branches concurrently.
	ParallelExecution bool `yaml:"parallel_execution"`

	Fusion FusionConfig `yaml:"fusion"`
}

// DefaultHybridConfig returns the standard orchestrator settings.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		TopKFinal:         20,
		BranchTopK:        100,
		DenseThreshold:    0.0,
		SparseThreshold:   0.0,
		ParallelExecution: true,
		Fusion:            DefaultFusionConfig(),
	}
}

// ExpansionConfig configures the query expander.
type ExpansionConfig struct {
	// Strategy selects how variants are built: "all", "best" or
	// "selective".
	Strategy string `yaml:"strategy"`

	// MaxExpansions caps the number of generated variants, excluding
	// the preserved original.
	MaxExpansions int `yaml:"max_expansions"`

	// PreserveOriginal prepends the original query to the output.
	PreserveOriginal bool `yaml:"preserve_original"`

	// MinWordLength drops shorter tokens from expansion candidates.
	MinWordLength int `yaml:"min_word_length"`

	// SynonymCacheSize bounds the per-word synonym cache.
	SynonymCacheSize int `yaml:"synonym_cache_size"`
}

// DefaultExpansionConfig returns the standard expansion settings.
func DefaultExpansionConfig() ExpansionConfig {
	return ExpansionConfig{
		Strategy:         ExpansionSelective,
		MaxExpansions:    10,
		PreserveOriginal: true,
		MinWordLength:    3,
		SynonymCacheSize: 512,
	}
}

// HyDEConfig configures the hypothetical document generator.
type HyDEConfig struct {
	NumHypotheticals int           `yaml:"num_hypotheticals"`
	MaxLength        int           `yaml:"max_length"`
	Temperature      float32       `yaml:"temperature"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	CacheSize        int           `yaml:"cache_size"`
}

// DefaultHyDEConfig returns the standard HyDE settings.
func DefaultHyDEConfig() HyDEConfig {
	return HyDEConfig{
		NumHypotheticals: 3,
		MaxLength:        200,
		Temperature:      0.7,
		CacheTTL:         time.Hour,
		CacheSize:        256,
	}
}

// ClassifierConfig configures the rule-based query classifier.
type ClassifierConfig struct {
	PatternWeight float64 `yaml:"pattern_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	LengthWeight  float64 `yaml:"length_weight"`

	// MinConfidence is the floor below which classification falls
	// back to Conceptual.
	MinConfidence float64 `yaml:"min_confidence"`

	// CacheSize bounds the classification LRU cache. Zero disables
	// caching.
	CacheSize int `yaml:"cache_size"`
}

// DefaultClassifierConfig returns the standard classifier weights.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		PatternWeight: 0.4,
		KeywordWeight: 0.3,
		LengthWeight:  0.2,
		MinConfidence: 0.6,
		CacheSize:     512,
	}
}
