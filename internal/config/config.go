// Package config loads and validates the riptide configuration file.
//
// Configuration lives in a single YAML document, usually at
// ~/.riptide/config.yaml or .riptide/config.yaml inside a corpus
// directory. Every section has working defaults so an absent file is
// not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/llm"
	"github.com/riptide-search/riptide/internal/search"
	"github.com/riptide-search/riptide/internal/store"
)

// DataDirName is the per-corpus data directory.
const DataDirName = ".riptide"

// Provider names for the embedding section.
const (
	EmbeddingStatic = "static"
	EmbeddingOpenAI = "openai"
)

// Provider names for the llm section.
const (
	LLMNone   = "none"
	LLMOllama = "ollama"
	LLMOpenAI = "openai"
)

// Sparse backend names.
const (
	SparseMemory = string(store.SparseBackendMemory)
	SparseBleve  = string(store.SparseBackendBleve)
)

// Config is the root configuration document.
type Config struct {
	Embedding  EmbeddingConfig         `yaml:"embedding"`
	LLM        LLMConfig               `yaml:"llm"`
	Sparse     SparseConfig            `yaml:"sparse"`
	Hybrid     search.HybridConfig     `yaml:"hybrid"`
	Expansion  search.ExpansionConfig  `yaml:"expansion"`
	HyDE       search.HyDEConfig       `yaml:"hyde"`
	Classifier search.ClassifierConfig `yaml:"classifier"`
	Logging    LoggingConfig           `yaml:"logging"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string             `yaml:"provider"`
	OpenAI   embed.OpenAIConfig `yaml:"openai"`
	// CacheSize bounds the embedding LRU cache.
	CacheSize int `yaml:"cache_size"`
}

// LLMConfig selects and configures the generation provider used by
// HyDE.
type LLMConfig struct {
	Provider string           `yaml:"provider"`
	Ollama   llm.OllamaConfig `yaml:"ollama"`
	OpenAI   llm.OpenAIConfig `yaml:"openai"`
}

// SparseConfig selects the sparse backend and its BM25 parameters.
type SparseConfig struct {
	Backend string           `yaml:"backend"`
	BM25    store.BM25Config `yaml:"bm25"`
}

// LoggingConfig mirrors logging.Config in yaml form.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingStatic,
			CacheSize: embed.DefaultEmbeddingCacheSize,
		},
		LLM: LLMConfig{
			Provider: LLMNone,
		},
		Sparse: SparseConfig{
			Backend: SparseMemory,
			BM25:    store.DefaultBM25Config(),
		},
		Hybrid:     search.DefaultHybridConfig(),
		Expansion:  search.DefaultExpansionConfig(),
		HyDE:       search.DefaultHyDEConfig(),
		Classifier: search.DefaultClassifierConfig(),
		Logging: LoggingConfig{
			Level:         "info",
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: false,
		},
	}
}

// DefaultPath returns the config file path inside a corpus directory.
func DefaultPath(corpusDir string) string {
	return filepath.Join(corpusDir, DataDirName, "config.yaml")
}

// Load reads a config file and overlays it on the defaults. A missing
// file returns the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.New(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("read config %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("parse config %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.ConfigError("create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.ConfigError("encode config", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the runtime cannot honor.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case EmbeddingStatic, EmbeddingOpenAI:
	default:
		return errors.Validation(errors.ErrCodeInvalidConfigValue,
			fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}

	switch c.LLM.Provider {
	case LLMNone, LLMOllama, LLMOpenAI:
	default:
		return errors.Validation(errors.ErrCodeInvalidConfigValue,
			fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}

	switch c.Sparse.Backend {
	case SparseMemory, SparseBleve:
	default:
		return errors.Validation(errors.ErrCodeInvalidConfigValue,
			fmt.Sprintf("unknown sparse backend %q", c.Sparse.Backend))
	}

	if c.Sparse.BM25.K1 < 0 {
		return errors.Validation(errors.ErrCodeInvalidConfigValue, "bm25 k1 must be non-negative")
	}
	if c.Sparse.BM25.B < 0 || c.Sparse.BM25.B > 1 {
		return errors.Validation(errors.ErrCodeInvalidConfigValue, "bm25 b must be in [0,1]")
	}

	switch c.Hybrid.Fusion.Method {
	case "", search.FusionMethodRRF, search.FusionMethodWeighted:
	default:
		return errors.Validation(errors.ErrCodeInvalidFusionMethod,
			fmt.Sprintf("unknown fusion method %q", c.Hybrid.Fusion.Method))
	}

	return nil
}
