package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/search"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
sparse:
  backend: bleve
  bm25:
    k1: 1.2
    min_token_length: 3
hybrid:
  fusion:
    method: weighted
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SparseBleve, cfg.Sparse.Backend)
	assert.Equal(t, search.FusionMethodWeighted, cfg.Hybrid.Fusion.Method)
	// Snake case keys map onto the BM25 section.
	assert.Equal(t, 1.2, cfg.Sparse.BM25.K1)
	assert.Equal(t, 3, cfg.Sparse.BM25.MinTokenLength)
	// Untouched fields keep their defaults.
	assert.Equal(t, EmbeddingStatic, cfg.Embedding.Provider)
	assert.Equal(t, Default().Sparse.BM25.B, cfg.Sparse.BM25.B)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataDirName, "config.yaml")

	cfg := Default()
	cfg.Sparse.Backend = SparseBleve
	cfg.Hybrid.TopKFinal = 7
	cfg.LLM.Provider = LLMOllama
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate_RejectsUnknownProviders(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "word2vec" }, errors.ErrCodeInvalidConfigValue},
		{"llm provider", func(c *Config) { c.LLM.Provider = "bard" }, errors.ErrCodeInvalidConfigValue},
		{"sparse backend", func(c *Config) { c.Sparse.Backend = "lucene" }, errors.ErrCodeInvalidConfigValue},
		{"fusion method", func(c *Config) { c.Hybrid.Fusion.Method = "median" }, errors.ErrCodeInvalidFusionMethod},
		{"negative k1", func(c *Config) { c.Sparse.BM25.K1 = -1 }, errors.ErrCodeInvalidConfigValue},
		{"b above one", func(c *Config) { c.Sparse.BM25.B = 1.5 }, errors.ErrCodeInvalidConfigValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, tc.code, errors.GetCode(err))
		})
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  provider: word2vec\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("corpus", DataDirName, "config.yaml"), DefaultPath("corpus"))
}
