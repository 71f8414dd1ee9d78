// Package langchain adapts langchaingo embedders to domain.Embedder.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

const healthInput = "health"

// Config describes an OpenAI-compatible endpoint served through langchaingo
// (Ollama, LM Studio, vLLM and similar local runtimes).
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Logger  *zap.Logger
}

// Embedder wraps a langchaingo embeddings.Embedder.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewEmbedder builds the langchaingo client chain.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("langchain: model is required")
	}
	token := cfg.APIKey
	if token == "" {
		// Local runtimes do not check the token.
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	return newEmbedder(emb, cfg.Logger), nil
}

func newEmbedder(emb embeddings.Embedder, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{embedder: emb, logger: logger}
}

// Embed implements domain.Embedder. langchaingo does not surface token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Debug("langchain embed failed", zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("langchain embed: %w: %w", err, domain.ErrProvider)
	}
	if len(vec) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("langchain embed: empty vector: %w", domain.ErrProvider)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck embeds a short input.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, healthInput); err != nil {
		return fmt.Errorf("langchain health: %w", err)
	}
	return nil
}
