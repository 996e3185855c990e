package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/riptide-search/riptide/internal/errors"
)

const (
	// LetterTokenizerName is the name of the registered letter-run tokenizer.
	LetterTokenizerName = "riptide_letters"

	// StopFilterName is the name of the registered stopword filter.
	StopFilterName = "riptide_stop"

	// TextAnalyzerName is the name of the registered analyzer.
	TextAnalyzerName = "riptide_text"
)

func init() {
	registry.RegisterTokenizer(LetterTokenizerName, letterTokenizerConstructor)
	registry.RegisterTokenFilter(StopFilterName, stopFilterConstructor)
}

// BleveSparseIndex is the persistent sparse backend. It scores with
// bleve's BM25-style ranking and applies the same score clamp as the
// in-memory model so scores stay comparable across backends.
type BleveSparseIndex struct {
	mu        sync.RWMutex
	index     bleve.Index
	path      string
	config    BM25Config
	tokenizer *Tokenizer
	byID      map[string]*Chunk
	closed    bool
}

// bleveChunk is the document shape stored in bleve. Metadata is stored
// as JSON so chunks can be reconstructed after a process restart.
type bleveChunk struct {
	Content   string `json:"content"`
	Metadata  string `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

// NewBleveSparseIndex opens or creates a bleve-backed sparse index.
// If path is empty, the index is memory-only.
func NewBleveSparseIndex(path string, config BM25Config) (*BleveSparseIndex, error) {
	im, err := createIndexMapping()
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeIndexFailed, "create index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, errors.Retrieval(errors.ErrCodeIndexFailed, "create index directory", mkErr)
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, im)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("sparse_index_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, errors.Retrieval(errors.ErrCodeIndexFailed,
					fmt.Sprintf("sparse index corrupted at %s and cannot remove", path), removeErr)
			}
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeIndexFailed, "open sparse index", err)
	}

	s := &BleveSparseIndex{
		index:     idx,
		path:      path,
		config:    config,
		tokenizer: NewTokenizer(config),
		byID:      make(map[string]*Chunk),
	}

	if err := s.reloadChunks(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return s, nil
}

// isCorruptionError checks if an error indicates bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// createIndexMapping builds the bleve mapping with the shared tokenizer
// rules as a custom analyzer.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     LetterTokenizerName,
		"token_filters": []string{StopFilterName},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}

	contentFM := bleve.NewTextFieldMapping()
	contentFM.Analyzer = TextAnalyzerName
	contentFM.Store = true

	storedFM := bleve.NewTextFieldMapping()
	storedFM.Index = false
	storedFM.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", contentFM)
	doc.AddFieldMappingsAt("metadata", storedFM)
	doc.AddFieldMappingsAt("created_at", storedFM)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = TextAnalyzerName
	return im, nil
}

// reloadChunks rebuilds the in-memory chunk map from stored fields
// after reopening a persisted index.
func (s *BleveSparseIndex) reloadChunks() error {
	count, err := s.index.DocCount()
	if err != nil || count == 0 {
		return nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{"content", "metadata", "created_at"}

	res, err := s.index.Search(req)
	if err != nil {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "reload indexed chunks", err)
	}
	for _, hit := range res.Hits {
		s.byID[hit.ID] = chunkFromFields(hit.ID, hit.Fields)
	}
	return nil
}

// chunkFromFields reconstructs a chunk from stored bleve fields.
func chunkFromFields(id string, fields map[string]interface{}) *Chunk {
	chunk := &Chunk{ID: id}
	if content, ok := fields["content"].(string); ok {
		chunk.Content = content
	}
	if meta, ok := fields["metadata"].(string); ok && meta != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(meta), &m); err == nil {
			chunk.Metadata = m
		}
	}
	if created, ok := fields["created_at"].(string); ok && created != "" {
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			chunk.CreatedAt = ts
		}
	}
	return chunk
}

// AddDocuments indexes chunks in a single batch.
func (s *BleveSparseIndex) AddDocuments(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "sparse index is closed", nil)
	}

	batch := s.index.NewBatch()
	for _, chunk := range chunks {
		if _, err := s.tokenizer.Preprocess(chunk.Content); err != nil {
			return errors.Retrieval(errors.ErrCodeIndexFailed,
				fmt.Sprintf("preprocess chunk %s", chunk.ID), err).WithStage("sparse_index")
		}

		metaJSON := ""
		if len(chunk.Metadata) > 0 {
			raw, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return errors.Retrieval(errors.ErrCodeIndexFailed,
					fmt.Sprintf("encode metadata for chunk %s", chunk.ID), err)
			}
			metaJSON = string(raw)
		}

		doc := bleveChunk{
			Content:   chunk.Content,
			Metadata:  metaJSON,
			CreatedAt: chunk.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := batch.Index(chunk.ID, doc); err != nil {
			return errors.Retrieval(errors.ErrCodeIndexFailed,
				fmt.Sprintf("index chunk %s", chunk.ID), err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "execute index batch", err)
	}

	for _, chunk := range chunks {
		s.byID[chunk.ID] = chunk
	}
	return nil
}

// Search runs a match query against the content field and clamps raw
// scores into [0,1].
func (s *BleveSparseIndex) Search(ctx context.Context, query string, topK int) ([]*SparseResult, error) {
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

	if len(s.tokenizer.PreprocessQuery(query)) == 0 {
		return []*SparseResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")
	matchQuery.Analyzer = TextAnalyzerName

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK
	req.IncludeLocations = true

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeSearchFailed, "sparse search", err)
	}

	results := make([]*SparseResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		score := NormalizeBM25Score(hit.Score)
		if score <= 0 {
			continue
		}
		chunk, ok := s.byID[hit.ID]
		if !ok {
			chunk = chunkFromFields(hit.ID, hit.Fields)
		}
		results = append(results, &SparseResult{
			Chunk:        chunk,
			Score:        score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return results, nil
}

// extractMatchedTerms extracts matched terms from a search hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "content" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

// Get returns the chunk with the given ID, if indexed.
func (s *BleveSparseIndex) Get(id string) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// DocumentCount reports the number of indexed chunks.
func (s *BleveSparseIndex) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	count, _ := s.index.DocCount()
	return int(count)
}

// Stats returns index statistics. Bleve does not expose term counts or
// average document length directly.
func (s *BleveSparseIndex) Stats() *IndexStats {
	return &IndexStats{DocumentCount: s.DocumentCount()}
}

// Clear removes every document without destroying the index.
func (s *BleveSparseIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "sparse index is closed", nil)
	}

	batch := s.index.NewBatch()
	for id := range s.byID {
		batch.Delete(id)
	}
	if err := s.index.Batch(batch); err != nil {
		return errors.Retrieval(errors.ErrCodeIndexFailed, "clear sparse index", err)
	}

	s.byID = make(map[string]*Chunk)
	return nil
}

// Close closes the underlying index.
func (s *BleveSparseIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

// Verify interface implementation
var _ SparseIndex = (*BleveSparseIndex)(nil)

// letterTokenizerConstructor creates the letter-run tokenizer for bleve.
func letterTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &letterRunTokenizer{minLen: 2}, nil
}

// letterRunTokenizer emits lowercased maximal ASCII letter runs,
// matching the shared Tokenizer rules.
type letterRunTokenizer struct {
	minLen int
}

// Tokenize implements analysis.Tokenizer.
func (t *letterRunTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	locs := letterRuns.FindAllStringIndex(text, -1)

	result := make(analysis.TokenStream, 0, len(locs))
	pos := 1
	for _, loc := range locs {
		run := text[loc[0]:loc[1]]
		if len(run) < t.minLen {
			continue
		}
		result = append(result, &analysis.Token{
			Term:     []byte(strings.ToLower(run)),
			Start:    loc[0],
			End:      loc[1],
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}
	return result
}

// stopFilterConstructor creates the English stopword filter for bleve.
func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &englishStopFilter{stopWords: BuildStopWordMap(EnglishStopWords)}, nil
}

type englishStopFilter struct {
	stopWords map[string]struct{}
}

// Filter implements analysis.TokenFilter.
func (f *englishStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[string(token.Term)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
