// Package bedrock embeds queries with Cohere models hosted on Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

const (
	defaultModel     = "cohere.embed-multilingual-v3"
	defaultInputType = "search_query"
	healthInput      = "health"
)

// invoker is the consumer interface over the Bedrock runtime client (ISP).
type invoker interface {
	InvokeModel(
		ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds the Bedrock settings for one provider.
type Config struct {
	Region    string
	Model     string
	InputType string
	// Endpoint overrides the regional endpoint (VPC endpoints, local emulators).
	Endpoint  string
	AccessKey string
	SecretKey string
	Logger    *zap.Logger
}

type cohereRequest struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate,omitempty"`
}

type cohereResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embedder calls Cohere embed through InvokeModel.
type Embedder struct {
	client    invoker
	model     string
	inputType string
	logger    *zap.Logger
}

// NewEmbedder loads the AWS config chain and builds a runtime client.
// Static keys take precedence over the default chain when both are set.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newEmbedder(client, cfg), nil
}

func loadOptions(cfg *Config) []func(*awsconfig.LoadOptions) error {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	return opts
}

func newEmbedder(client invoker, cfg *Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	inputType := cfg.InputType
	if inputType == "" {
		inputType = defaultInputType
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{client: client, model: model, inputType: inputType, logger: logger}
}

// Embed implements domain.Embedder. Bedrock does not report token usage for Cohere embed.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	body, err := json.Marshal(cohereRequest{Texts: []string{text}, InputType: e.inputType, Truncate: "END"})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal cohere request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		e.logger.Debug("Bedrock invoke failed", zap.String("model", e.model), zap.Error(err))
		return domain.EmbeddingResult{}, wrapError(err)
	}

	var resp cohereResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("decode cohere response: %w: %w", err, domain.ErrProvider)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty cohere response: %w", domain.ErrProvider)
	}
	return domain.EmbeddingResult{Embedding: resp.Embeddings[0]}, nil
}

// HealthCheck embeds a short input; the runtime API has no cheaper call.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, healthInput); err != nil {
		return fmt.Errorf("bedrock health: %w", err)
	}
	return nil
}

func wrapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), domain.ErrProvider)
	}
	return fmt.Errorf("bedrock invoke: %w: %w", err, domain.ErrProvider)
}
