package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/riptide-search/riptide/internal/errors"
)

// bm25Model is the rebuildable ranking model over the tokenized corpus.
// It is rebuilt in full on every AddDocuments call; the index is
// batch-oriented, not streaming.
type bm25Model struct {
	k1        float64
	b         float64
	docCount  int
	avgDocLen float64
	docLens   []int
	termFreqs []map[string]int
	docFreq   map[string]int
}

func buildBM25Model(corpus [][]string, k1, b float64) *bm25Model {
	m := &bm25Model{
		k1:        k1,
		b:         b,
		docCount:  len(corpus),
		docLens:   make([]int, len(corpus)),
		termFreqs: make([]map[string]int, len(corpus)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, tokens := range corpus {
		m.docLens[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		m.termFreqs[i] = tf

		for term := range tf {
			m.docFreq[term]++
		}
	}

	if m.docCount > 0 {
		m.avgDocLen = float64(totalLen) / float64(m.docCount)
	}
	return m
}

// idf uses the non-negative variant ln(1 + (N - df + 0.5)/(df + 0.5)).
func (m *bm25Model) idf(term string) float64 {
	df := m.docFreq[term]
	if df == 0 {
		return 0
	}
	n := float64(m.docCount)
	return math.Log(1.0 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// scores returns the raw BM25 score of every document for the query.
func (m *bm25Model) scores(queryTokens []string) []float64 {
	out := make([]float64, m.docCount)
	if m.docCount == 0 || m.avgDocLen == 0 {
		return out
	}

	for _, term := range queryTokens {
		idf := m.idf(term)
		if idf == 0 {
			continue
		}
		for i := 0; i < m.docCount; i++ {
			tf := float64(m.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			norm := m.k1 * (1.0 - m.b + m.b*float64(m.docLens[i])/m.avgDocLen)
			out[i] += idf * (tf * (m.k1 + 1.0)) / (tf + norm)
		}
	}
	return out
}

// MemorySparseIndex is the in-process BM25 sparse index. It holds the
// tokenized corpus, the original chunks, and a rebuildable BM25 model.
type MemorySparseIndex struct {
	mu        sync.RWMutex
	config    BM25Config
	tokenizer *Tokenizer
	corpus    [][]string
	chunks    []*Chunk
	byID      map[string]*Chunk
	model     *bm25Model
	closed    bool
}

// NewMemorySparseIndex creates an empty in-memory sparse index.
func NewMemorySparseIndex(config BM25Config) *MemorySparseIndex {
	if config.K1 <= 0 {
		config.K1 = 1.5
	}
	if config.B <= 0 {
		config.B = 0.75
	}
	if config.TopK <= 0 {
		config.TopK = 100
	}
	return &MemorySparseIndex{
		config:    config,
		tokenizer: NewTokenizer(config),
		byID:      make(map[string]*Chunk),
		model:     buildBM25Model(nil, config.K1, config.B),
	}
}

// AddDocuments preprocesses each chunk, appends it to the corpus, and
// rebuilds the ranking model.
func (s *MemorySparseIndex) AddDocuments(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "sparse index is closed", nil)
	}

	// Tokenize the whole batch before touching index state so a bad
	// chunk cannot leave a partially committed batch behind.
	staged := make([][]string, len(chunks))
	for i, chunk := range chunks {
		tokens, err := s.tokenizer.Preprocess(chunk.Content)
		if err != nil {
			return errors.Retrieval(errors.ErrCodeIndexFailed,
				fmt.Sprintf("preprocess chunk %s", chunk.ID), err).WithStage("sparse_index")
		}
		staged[i] = tokens
	}

	s.corpus = append(s.corpus, staged...)
	for _, chunk := range chunks {
		s.chunks = append(s.chunks, chunk)
		s.byID[chunk.ID] = chunk
	}

	s.model = buildBM25Model(s.corpus, s.config.K1, s.config.B)
	return nil
}

// Search scores every document against the query, drops zero-score
// documents, and returns the top K normalized to [0,1].
func (s *MemorySparseIndex) Search(ctx context.Context, query string, topK int) ([]*SparseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.Retrieval(errors.ErrCodeSearchFailed, "sparse index is closed", nil)
	}
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	queryTokens := s.tokenizer.PreprocessQuery(query)
	if len(queryTokens) == 0 {
		return []*SparseResult{}, nil
	}

	raw := s.model.scores(queryTokens)

	type scored struct {
		idx   int
		score float64
	}
	hits := make([]scored, 0, len(raw))
	for i, sc := range raw {
		if sc > 0 {
			hits = append(hits, scored{idx: i, score: sc})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].idx < hits[j].idx
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]*SparseResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, &SparseResult{
			Chunk:        s.chunks[h.idx],
			Score:        NormalizeBM25Score(h.score),
			MatchedTerms: s.matchedTerms(h.idx, queryTokens),
		})
	}
	return results, nil
}

// matchedTerms returns the query tokens present in the document, in
// query order, deduplicated.
func (s *MemorySparseIndex) matchedTerms(docIdx int, queryTokens []string) []string {
	tf := s.model.termFreqs[docIdx]
	seen := make(map[string]struct{}, len(queryTokens))
	matched := make([]string, 0, len(queryTokens))
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if tf[tok] > 0 {
			matched = append(matched, tok)
		}
	}
	return matched
}

// Get returns the chunk with the given ID, if indexed.
func (s *MemorySparseIndex) Get(id string) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// DocumentCount reports the number of indexed chunks.
func (s *MemorySparseIndex) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Stats returns index statistics.
func (s *MemorySparseIndex) Stats() *IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &IndexStats{
		DocumentCount: len(s.chunks),
		TermCount:     len(s.model.docFreq),
		AvgDocLength:  s.model.avgDocLen,
	}
}

// Clear resets the index to empty without destroying it.
func (s *MemorySparseIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "sparse index is closed", nil)
	}

	s.corpus = nil
	s.chunks = nil
	s.byID = make(map[string]*Chunk)
	s.model = buildBM25Model(nil, s.config.K1, s.config.B)
	return nil
}

// Close releases resources.
func (s *MemorySparseIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// validateQuery rejects empty query strings. A query that tokenizes to
// nothing is handled separately (empty results, no error).
func validateQuery(query string) error {
	if query == "" {
		return errors.Validation(errors.ErrCodeQueryEmpty, "query must not be empty")
	}
	return nil
}

// Verify interface implementation
var _ SparseIndex = (*MemorySparseIndex)(nil)
