package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/riptide-search/riptide/internal/errors"
)

// VectorStoreConfig configures the HNSW-backed vector store.
type VectorStoreConfig struct {
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"`
	M          int    `yaml:"m"`
	EfSearch   int    `yaml:"ef_search"`
}

// DefaultVectorStoreConfig returns the default HNSW parameters.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// HNSWStore implements VectorStore using the coder/hnsw pure Go graph.
// Chunks are kept alongside the graph so search hits carry full
// documents, not just IDs.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	chunks map[string]*Chunk

	initialized bool
	closed      bool
}

// hnswMetadata stores ID mappings and chunks for persistence.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  VectorStoreConfig
	Chunks  map[string]*Chunk
}

// NewHNSWStore creates a new HNSW-based vector store.
func NewHNSWStore(cfg VectorStoreConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.Validation(errors.ErrCodeInvalidConfigValue,
			fmt.Sprintf("vector store dimensions must be positive, got %d", cfg.Dimensions))
	}
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "cos":
		graph.Distance = hnsw.CosineDistance
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWStore{
		graph:   graph,
		config:  cfg,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		chunks:  make(map[string]*Chunk),
		nextKey: 0,
	}, nil
}

// Initialize marks the store ready. Operations fail with a
// not-initialized error until it has been called.
func (s *HNSWStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeStoreFailed, "vector store is closed", nil)
	}
	s.initialized = true
	return nil
}

func (s *HNSWStore) checkReady() error {
	if s.closed {
		return errors.Retrieval(errors.ErrCodeStoreFailed, "vector store is closed", nil)
	}
	if !s.initialized {
		return errors.Retrieval(errors.ErrCodeNotInitialized,
			"vector store has not been initialized", nil).WithStage("vector_store")
	}
	return nil
}

// AddDocuments inserts chunks with their embeddings. If a chunk ID
// already exists its old entry is lazily orphaned in the graph, which
// avoids a coder/hnsw bug when deleting the last node.
func (s *HNSWStore) AddDocuments(ctx context.Context, chunks []*Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(embeddings) {
		return errors.Retrieval(errors.ErrCodeStoreFailed,
			fmt.Sprintf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return err
	}

	for _, v := range embeddings {
		if len(v) != s.config.Dimensions {
			return errors.Retrieval(errors.ErrCodeStoreFailed,
				fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", s.config.Dimensions, len(v)), nil)
		}
	}

	for i, chunk := range chunks {
		if existingKey, exists := s.idMap[chunk.ID]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, chunk.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		if s.config.Metric == "cos" {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[chunk.ID] = key
		s.keyMap[key] = chunk.ID
		s.chunks[chunk.ID] = chunk
	}

	return nil
}

// Search finds the nearest chunks to the query embedding, applying the
// similarity threshold and metadata options.
func (s *HNSWStore) Search(ctx context.Context, query []float32, opts VectorSearchOptions) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	if len(query) != s.config.Dimensions {
		return nil, errors.Retrieval(errors.ErrCodeSearchFailed,
			fmt.Sprintf("query dimension mismatch: expected %d, got %d", s.config.Dimensions, len(query)), nil)
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	if s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	normalizedQuery := make([]float32, len(query))
	copy(normalizedQuery, query)
	if s.config.Metric == "cos" {
		normalizeVectorInPlace(normalizedQuery)
	}

	nodes := s.graph.Search(normalizedQuery, opts.Limit)

	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, exists := s.keyMap[node.Key]
		if !exists {
			// Lazily deleted node still in the graph.
			continue
		}

		distance := s.graph.Distance(normalizedQuery, node.Value)
		score := distanceToScore(distance, s.config.Metric)
		if score < opts.Threshold {
			continue
		}

		chunk, ok := s.chunks[id]
		if !ok {
			continue
		}

		results = append(results, &VectorResult{
			Chunk:    chunk.Clone(opts.IncludeMetadata),
			Score:    score,
			Distance: distance,
		})
	}

	// Graph traversal yields candidates in heap order, not by distance.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	return results, nil
}

// Chunks returns all stored chunks. Used to rebuild a non-persistent
// sparse index after loading the vector store from disk.
func (s *HNSWStore) Chunks() []*Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Chunk, 0, len(s.chunks))
	for id := range s.idMap {
		if chunk, ok := s.chunks[id]; ok {
			out = append(out, chunk)
		}
	}
	return out
}

// Count returns the number of stored documents.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Clear removes all documents. The graph is rebuilt rather than
// node-deleted to avoid orphan accumulation.
func (s *HNSWStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return err
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = s.graph.Distance
	graph.M = s.config.M
	graph.EfSearch = s.config.EfSearch
	graph.Ml = 0.25

	s.graph = graph
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.chunks = make(map[string]*Chunk)
	s.nextKey = 0
	return nil
}

// GetStats returns store statistics. Orphans are nodes left in the
// graph by lazy deletion.
func (s *HNSWStore) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return map[string]any{}
	}

	validIDs := len(s.idMap)
	graphNodes := s.graph.Len()
	return map[string]any{
		"document_count": validIDs,
		"graph_nodes":    graphNodes,
		"orphans":        graphNodes - validIDs,
		"dimensions":     s.config.Dimensions,
		"metric":         s.config.Metric,
	}
}

// Save persists the graph and chunk metadata to disk.
// Uses atomic save (temp file + rename).
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeStoreFailed, "vector store is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpIndexPath := path + ".tmp"
	file, err := os.Create(tmpIndexPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpIndexPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpIndexPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpIndexPath, path); err != nil {
		os.Remove(tmpIndexPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	if err := s.saveMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// saveMetadata saves ID mappings and chunks to a gob file.
func (s *HNSWStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := hnswMetadata{
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Config:  s.config,
		Chunks:  s.chunks,
	}

	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close temp file during cleanup", slog.String("error", closeErr.Error()))
		}
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Load restores the graph and chunk metadata from disk.
func (s *HNSWStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Retrieval(errors.ErrCodeStoreFailed, "vector store is closed", nil)
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	s.initialized = true
	return nil
}

// loadMetadata loads ID mappings and chunks from a gob file.
func (s *HNSWStore) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close metadata file", slog.String("error", err.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	s.idMap = meta.IDMap
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	s.nextKey = meta.NextKey
	s.config = meta.Config
	s.chunks = meta.Chunks
	if s.chunks == nil {
		s.chunks = make(map[string]*Chunk)
	}
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases resources.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// ReadStoredDimensions reads the dimensions from an existing store's
// metadata. Returns 0 if the metadata file does not exist.
func ReadStoredDimensions(vectorPath string) (int, error) {
	file, err := os.Open(vectorPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open metadata: %w", err)
	}
	defer file.Close()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.Config.Dimensions, nil
}

// Verify interface implementation
var _ VectorStore = (*HNSWStore)(nil)

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts a distance value to a similarity score.
// Cosine distance ranges 0..2, L2 ranges 0..inf.
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
