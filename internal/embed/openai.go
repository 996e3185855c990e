package embed

import (
	"context"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/riptide-search/riptide/internal/errors"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
// BaseURL allows pointing at any compatible endpoint.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// OpenAIEmbedder generates embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder backed by an OpenAI-compatible API.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.Validation(errors.ErrCodeInvalidConfigValue, "openai embedder requires an api key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Initialize verifies the API is reachable by embedding a probe string.
func (e *OpenAIEmbedder) Initialize(ctx context.Context) error {
	_, err := e.Embed(ctx, []string{"ping"})
	if err != nil {
		return errors.Retrieval(errors.ErrCodeEmbeddingFailed, "embedding api unreachable", err)
	}
	return nil
}

// Embed generates embeddings for a batch of texts in a single request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.Validation(errors.ErrCodeInvalidInput, "no texts to embed")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, errors.Retrieval(errors.ErrCodeEmbeddingFailed, "create embeddings", err).
			WithStage("embed").
			WithDetail("model", e.model)
	}
	if len(resp.Data) != len(texts) {
		slog.Warn("embedding_count_mismatch",
			slog.Int("requested", len(texts)),
			slog.Int("returned", len(resp.Data)))
		return nil, errors.Retrieval(errors.ErrCodeEmbeddingFailed, "embedding count mismatch", nil)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the configured embedding size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close is a no-op; the client holds no persistent connections.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
