package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

// HybridSearcher is the top-level entry point. It dispatches the dense
// and sparse branches, filters each by its score threshold, fuses the
// survivors, and returns a deduplicated ranked list.
//
// A failed branch degrades to an empty list instead of aborting the
// call; only a failure of both branches propagates.
type HybridSearcher struct {
	config HybridConfig
	dense  *DenseRetriever
	sparse store.SparseIndex
	fuser  *Fuser
	logger *slog.Logger
}

// NewHybridSearcher wires the two retrieval branches together. The
// fusion method is validated here so bad config fails fast.
func NewHybridSearcher(dense *DenseRetriever, sparse store.SparseIndex, config HybridConfig) (*HybridSearcher, error) {
	if config.TopKFinal <= 0 {
		config.TopKFinal = DefaultHybridConfig().TopKFinal
	}
	if config.BranchTopK <= 0 {
		config.BranchTopK = DefaultHybridConfig().BranchTopK
	}

	fuser, err := NewFuser(config.Fusion)
	if err != nil {
		return nil, err
	}

	return &HybridSearcher{
		config: config,
		dense:  dense,
		sparse: sparse,
		fuser:  fuser,
		logger: slog.Default().With(slog.String("component", "hybrid_search")),
	}, nil
}

// AddDocuments indexes chunks into both branches.
func (h *HybridSearcher) AddDocuments(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := h.sparse.AddDocuments(ctx, chunks); err != nil {
		return err
	}
	return h.dense.AddDocuments(ctx, chunks)
}

// Search runs the full hybrid pipeline for a query.
func (h *HybridSearcher) Search(ctx context.Context, query string) ([]*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Validation(errors.ErrCodeQueryEmpty, "hybrid search requires a non-empty query")
	}

	started := time.Now()
	denseResults, sparseResults, err := h.runBranches(ctx, query)
	if err != nil {
		return nil, err
	}

	denseResults = filterByThreshold(denseResults, h.config.DenseThreshold)
	sparseResults = filterByThreshold(sparseResults, h.config.SparseThreshold)

	var fused []*SearchResult
	switch {
	case len(denseResults) > 0 && len(sparseResults) > 0:
		fused = h.fuser.Fuse(denseResults, sparseResults)
	case len(denseResults) > 0:
		fused = denseResults
	case len(sparseResults) > 0:
		fused = sparseResults
	default:
		return []*SearchResult{}, nil
	}

	fused = DeduplicateResults(fused)
	if len(fused) > h.config.TopKFinal {
		fused = fused[:h.config.TopKFinal]
	}
	fused = assignRanks(fused)

	h.logger.Debug("hybrid_search_complete",
		slog.Int("dense_results", len(denseResults)),
		slog.Int("sparse_results", len(sparseResults)),
		slog.Int("final_results", len(fused)),
		slog.Duration("elapsed", time.Since(started)))

	return fused, nil
}

// runBranches executes both branches, in parallel or sequentially per
// config. Branch errors are collected, not propagated, so one branch
// never cancels the other.
func (h *HybridSearcher) runBranches(ctx context.Context, query string) ([]*SearchResult, []*SearchResult, error) {
	var (
		denseResults, sparseResults []*SearchResult
		denseErr, sparseErr         error
	)

	if h.config.ParallelExecution {
		var g errgroup.Group
		g.Go(func() error {
			denseResults, denseErr = h.searchDense(ctx, query)
			return nil
		})
		g.Go(func() error {
			sparseResults, sparseErr = h.searchSparse(ctx, query)
			return nil
		})
		_ = g.Wait()
	} else {
		denseResults, denseErr = h.searchDense(ctx, query)
		sparseResults, sparseErr = h.searchSparse(ctx, query)
	}

	if denseErr != nil && sparseErr != nil {
		return nil, nil, errors.Retrieval(errors.ErrCodeSearchFailed,
			fmt.Sprintf("both branches failed: dense: %v; sparse: %v", denseErr, sparseErr), denseErr).
			WithStage("hybrid_search")
	}
	if denseErr != nil {
		h.logger.Warn("dense_branch_failed", slog.String("error", denseErr.Error()))
		denseResults = nil
	}
	if sparseErr != nil {
		h.logger.Warn("sparse_branch_failed", slog.String("error", sparseErr.Error()))
		sparseResults = nil
	}
	return denseResults, sparseResults, nil
}

func (h *HybridSearcher) searchDense(ctx context.Context, query string) ([]*SearchResult, error) {
	return h.dense.Search(ctx, query, h.config.BranchTopK)
}

// searchSparse runs the BM25 branch and converts hits into the shared
// result shape.
func (h *HybridSearcher) searchSparse(ctx context.Context, query string) ([]*SearchResult, error) {
	hits, err := h.sparse.Search(ctx, query, h.config.BranchTopK)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, len(hits))
	for i, hit := range hits {
		explanation := "lexical match"
		metadata := map[string]string{"retriever": "sparse"}
		if len(hit.MatchedTerms) > 0 {
			terms := strings.Join(hit.MatchedTerms, ", ")
			explanation = "matched terms: " + terms
			metadata["matched_terms"] = terms
		}
		results[i] = &SearchResult{
			Chunk:       hit.Chunk,
			Score:       hit.Score,
			Rank:        i + 1,
			Distance:    1.0 - hit.Score,
			Explanation: explanation,
			Metadata:    metadata,
		}
	}
	return results, nil
}

// filterByThreshold drops results scoring below the threshold.
func filterByThreshold(results []*SearchResult, threshold float64) []*SearchResult {
	if threshold <= 0 {
		return results
	}
	out := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Clear empties both branches.
func (h *HybridSearcher) Clear(ctx context.Context) error {
	if err := h.sparse.Clear(ctx); err != nil {
		return err
	}
	return h.dense.Clear(ctx)
}

// Stats reports per-branch document counts and backend details. The
// counts are independent and need not match.
func (h *HybridSearcher) Stats() map[string]any {
	sparseStats := h.sparse.Stats()
	return map[string]any{
		"sparse_document_count": sparseStats.DocumentCount,
		"sparse_term_count":     sparseStats.TermCount,
		"dense":                 h.dense.Stats(),
		"fusion_method":         h.fuser.Method(),
	}
}

// Close releases the dense branch backends. The sparse index is closed
// by its owner.
func (h *HybridSearcher) Close() error {
	return h.dense.Close()
}
