// Package tei embeds queries through a text-embeddings-inference server
// using its OpenAI-compatible route.
package tei

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

const healthInput = "health"

// Config holds the TEI endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Logger  *zap.Logger
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embedder calls a self-hosted TEI deployment.
type Embedder struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewEmbedder creates a TEI embedder. Retries are disabled; the caller owns the deadline.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("tei: base_url is required")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// TEI ignores the token but the SDK refuses to send an empty one.
		apiKey = "none"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client: openai.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var out embeddingResponse
	req := embeddingRequest{Model: e.model, Input: []string{text}}
	if err := e.client.Post(ctx, "embeddings", req, &out); err != nil {
		e.logger.Debug("TEI request failed", zap.Error(err))
		return domain.EmbeddingResult{}, wrapError(err)
	}
	if out.Error != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("tei: %s: %w", out.Error.Message, domain.ErrProvider)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("tei: empty embedding response: %w", domain.ErrProvider)
	}

	src := out.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: out.Usage.PromptTokens,
		TotalTokens:  out.Usage.TotalTokens,
	}, nil
}

// HealthCheck embeds a short input; TEI has no model listing on the compatible route.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, healthInput); err != nil {
		return fmt.Errorf("tei health: %w", err)
	}
	return nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("tei API error %d: %w", apiErr.StatusCode, domain.ErrProvider)
	}
	return fmt.Errorf("tei request failed: %w: %w", err, domain.ErrProvider)
}
