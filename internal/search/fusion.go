package search

import (
	"fmt"
	"sort"

	"github.com/riptide-search/riptide/internal/errors"
)

// Fuser merges ranked result lists from the dense and sparse branches
// into a single ranked list.
type Fuser struct {
	config FusionConfig
}

// NewFuser creates a fusion engine. The fusion method is validated up
// front so a misconfigured orchestrator fails at construction, not
// mid-search.
func NewFuser(config FusionConfig) (*Fuser, error) {
	switch config.Method {
	case FusionMethodRRF, FusionMethodWeighted:
	case "":
		config.Method = FusionMethodRRF
	default:
		return nil, errors.Validation(errors.ErrCodeInvalidFusionMethod,
			fmt.Sprintf("unknown fusion method %q (want %q or %q)", config.Method, FusionMethodRRF, FusionMethodWeighted))
	}

	if config.RRFK <= 0 {
		config.RRFK = 60.0
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 100
	}
	if config.DenseWeight <= 0 && config.SparseWeight <= 0 {
		d := DefaultFusionConfig()
		config.DenseWeight = d.DenseWeight
		config.SparseWeight = d.SparseWeight
	}

	return &Fuser{config: config}, nil
}

// Method returns the configured fusion method.
func (f *Fuser) Method() string {
	return f.config.Method
}

// Fuse merges the two branch lists using the configured method. The
// output is sorted descending by fused score, truncated, deduplicated
// by chunk ID, and re-ranked 1..N.
func (f *Fuser) Fuse(dense, sparse []*SearchResult) []*SearchResult {
	var fused []*SearchResult
	switch f.config.Method {
	case FusionMethodWeighted:
		fused = f.fuseWeighted(dense, sparse)
	default:
		fused = f.fuseRRF(dense, sparse)
	}

	if len(fused) > f.config.MaxResults {
		fused = fused[:f.config.MaxResults]
	}
	return assignRanks(fused)
}

// fuseRRF sums 1/(k+rank) contributions per chunk ID across both
// lists. The sum is hard-clamped to 1.0 rather than re-normalized,
// matching the fixed constant behavior relied on by downstream
// consumers.
func (f *Fuser) fuseRRF(dense, sparse []*SearchResult) []*SearchResult {
	type fusedEntry struct {
		result *SearchResult
		score  float64
		order  int
	}

	entries := make(map[string]*fusedEntry)
	order := 0

	accumulate := func(results []*SearchResult) {
		for i, r := range results {
			rank := r.Rank
			if rank <= 0 {
				rank = i + 1
			}
			contribution := 1.0 / (f.config.RRFK + float64(rank))

			if e, ok := entries[r.Chunk.ID]; ok {
				e.score += contribution
			} else {
				entries[r.Chunk.ID] = &fusedEntry{result: r, score: contribution, order: order}
				order++
			}
		}
	}
	accumulate(dense)
	accumulate(sparse)

	flat := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		if e.score > 1.0 {
			e.score = 1.0
		}
		flat = append(flat, e)
	}

	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].score != flat[j].score {
			return flat[i].score > flat[j].score
		}
		return flat[i].order < flat[j].order
	})

	out := make([]*SearchResult, len(flat))
	for i, e := range flat {
		out[i] = cloneResultWithScore(e.result, e.score)
	}
	return out
}

// fuseWeighted computes dense_weight*dense_score + sparse_weight*
// sparse_score over the union of chunk IDs. A chunk missing from a
// branch contributes 0 for that branch, it is not excluded.
func (f *Fuser) fuseWeighted(dense, sparse []*SearchResult) []*SearchResult {
	dw, sw := f.config.DenseWeight, f.config.SparseWeight
	total := dw + sw
	if total > 0 {
		dw /= total
		sw /= total
	}

	type fusedEntry struct {
		result *SearchResult
		score  float64
		order  int
	}

	entries := make(map[string]*fusedEntry)
	order := 0

	for _, r := range dense {
		entries[r.Chunk.ID] = &fusedEntry{result: r, score: dw * r.Score, order: order}
		order++
	}
	for _, r := range sparse {
		if e, ok := entries[r.Chunk.ID]; ok {
			e.score += sw * r.Score
		} else {
			entries[r.Chunk.ID] = &fusedEntry{result: r, score: sw * r.Score, order: order}
			order++
		}
	}

	flat := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		flat = append(flat, e)
	}

	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].score != flat[j].score {
			return flat[i].score > flat[j].score
		}
		return flat[i].order < flat[j].order
	})

	out := make([]*SearchResult, len(flat))
	for i, e := range flat {
		out[i] = cloneResultWithScore(e.result, e.score)
	}
	return out
}

// DeduplicateResults keeps only the first occurrence of each chunk ID,
// preserving input order.
func DeduplicateResults(results []*SearchResult) []*SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.Chunk.ID]; dup {
			continue
		}
		seen[r.Chunk.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NormalizeScores min-max normalizes scores into [0,1]. If all scores
// are equal the input is returned unchanged.
func NormalizeScores(results []*SearchResult) []*SearchResult {
	if len(results) == 0 {
		return results
	}

	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore == minScore {
		return results
	}

	spread := maxScore - minScore
	out := make([]*SearchResult, len(results))
	for i, r := range results {
		out[i] = cloneResultWithScore(r, (r.Score-minScore)/spread)
		out[i].Rank = r.Rank
	}
	return out
}

// assignRanks sets 1-based ranks in list order and keeps Distance
// consistent with Score.
func assignRanks(results []*SearchResult) []*SearchResult {
	for i, r := range results {
		r.Rank = i + 1
		r.Distance = 1.0 - r.Score
	}
	return results
}

// cloneResultWithScore copies a result with a new score so fusion does
// not mutate branch lists.
func cloneResultWithScore(r *SearchResult, score float64) *SearchResult {
	clone := *r
	clone.Score = score
	clone.Distance = 1.0 - score
	return &clone
}
