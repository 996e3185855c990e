package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/llm"
	"github.com/riptide-search/riptide/internal/search"
	"github.com/riptide-search/riptide/internal/store"
)

// engine bundles the wired retrieval stack for a corpus directory.
type engine struct {
	cfg      *config.Config
	searcher *search.HybridSearcher
	sparse   store.SparseIndex
	vectors  *store.HNSWStore

	dataDir     string
	vectorsPath string
}

// openEngine loads config and wires the full stack for corpusDir. The
// vector store is loaded from disk when a previous index exists; a
// memory-backed sparse index is rebuilt from the persisted chunks.
// Overrides run after the file is loaded, before anything is built, so
// CLI flags can adjust the effective config.
func openEngine(ctx context.Context, corpusDir string, overrides ...func(*config.Config)) (*engine, error) {
	cfg, err := config.Load(config.DefaultPath(corpusDir))
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := filepath.Join(corpusDir, config.DataDirName)
	vectorsPath := filepath.Join(dataDir, "vectors.hnsw")

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(vectorsPath); statErr == nil {
		if dims, dimErr := store.ReadStoredDimensions(vectorsPath); dimErr == nil && dims > 0 && dims != embedder.Dimensions() {
			return nil, fmt.Errorf("index was built with %d-dimension embeddings but provider %q produces %d; run 'riptide clear' and reindex",
				dims, cfg.Embedding.Provider, embedder.Dimensions())
		}
		if loadErr := vectors.Load(vectorsPath); loadErr != nil {
			slog.Warn("vector_load_failed", slog.String("error", loadErr.Error()))
		}
	}

	dense := search.NewDenseRetriever(embedder, vectors)
	if err := dense.Initialize(ctx); err != nil {
		return nil, err
	}

	sparsePath := ""
	if cfg.Sparse.Backend == config.SparseBleve {
		sparsePath = filepath.Join(dataDir, "sparse.bleve")
	}
	sparse, err := store.NewSparseIndex(store.SparseBackend(cfg.Sparse.Backend), sparsePath, cfg.Sparse.BM25)
	if err != nil {
		return nil, err
	}

	// The memory backend does not persist; rebuild it from the chunks
	// the vector store carried across restarts.
	if cfg.Sparse.Backend == config.SparseMemory && sparse.DocumentCount() == 0 {
		if chunks := vectors.Chunks(); len(chunks) > 0 {
			if err := sparse.AddDocuments(ctx, chunks); err != nil {
				return nil, err
			}
		}
	}

	searcher, err := search.NewHybridSearcher(dense, sparse, cfg.Hybrid)
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:         cfg,
		searcher:    searcher,
		sparse:      sparse,
		vectors:     vectors,
		dataDir:     dataDir,
		vectorsPath: vectorsPath,
	}, nil
}

// save persists the vector store. The bleve sparse backend persists
// itself on write.
func (e *engine) save() error {
	return e.vectors.Save(e.vectorsPath)
}

func (e *engine) close() {
	_ = e.searcher.Close()
	_ = e.sparse.Close()
}

// buildEmbedder wires the configured embedding provider behind the
// shared LRU cache.
func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	var (
		inner embed.Embedder
		err   error
	)
	switch cfg.Embedding.Provider {
	case config.EmbeddingOpenAI:
		inner, err = embed.NewOpenAIEmbedder(cfg.Embedding.OpenAI)
		if err != nil {
			return nil, err
		}
	default:
		inner = embed.NewStaticEmbedder()
	}
	return embed.NewCachedEmbedder(inner, cfg.Embedding.CacheSize), nil
}

// buildLLM wires the configured generation provider, or nil when none
// is configured.
func buildLLM(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.LLMOllama:
		return llm.NewOllamaProvider(cfg.LLM.Ollama), nil
	case config.LLMOpenAI:
		return llm.NewOpenAIProvider(cfg.LLM.OpenAI)
	default:
		return nil, nil
	}
}
