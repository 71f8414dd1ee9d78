package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
	"github.com/kailas-cloud/arxivsearch/internal/repository/embcache"
	bedrockEmb "github.com/kailas-cloud/arxivsearch/internal/transport/bedrock"
	langchainEmb "github.com/kailas-cloud/arxivsearch/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/arxivsearch/internal/transport/openai"
	teiEmb "github.com/kailas-cloud/arxivsearch/internal/transport/tei"
	embeddinguc "github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
)

// NewBaseEmbedder creates the transport embedder for a provider kind.
func NewBaseEmbedder(
	ctx context.Context, spec provider.Spec, pc config.ProviderConfig, logger *zap.Logger,
) (domain.Embedder, error) {
	switch pc.Kind {
	case config.KindOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Dimensions: pc.Dimensions,
			Provider:   string(spec.ID()),
			Logger:     logger,
		}), nil
	case config.KindTEI:
		e, err := teiEmb.NewEmbedder(&teiEmb.Config{
			BaseURL: pc.BaseURL,
			APIKey:  pc.APIKey,
			Model:   pc.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("tei embedder: %w", err)
		}
		return e, nil
	case config.KindBedrock:
		e, err := bedrockEmb.NewEmbedder(ctx, bedrockConfig(pc, logger))
		if err != nil {
			return nil, fmt.Errorf("bedrock embedder: %w", err)
		}
		return e, nil
	case config.KindLangChain:
		e, err := langchainEmb.NewEmbedder(&langchainEmb.Config{
			BaseURL: pc.BaseURL,
			APIKey:  pc.APIKey,
			Model:   pc.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("langchain embedder: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

// Decorate assembles the decorator chain: base -> cached -> instrumented -> instruction.
// A nil cache disables caching.
func Decorate(
	base domain.Embedder,
	spec provider.Spec,
	pc config.ProviderConfig,
	cache CacheStore,
	cacheTTL time.Duration,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cache != nil {
		embedder = embcache.New(embedder, cache, spec, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, string(spec.ID()), pc.Model, logger)

	// Outermost, so cache keys include the instruction.
	if pc.Instruction != "" {
		return domain.NewInstructionEmbedder(embedder, pc.Instruction)
	}
	return embedder
}

func bedrockConfig(pc config.ProviderConfig, logger *zap.Logger) *bedrockEmb.Config {
	return &bedrockEmb.Config{
		Region:    pc.Region,
		Model:     pc.Model,
		InputType: pc.InputType,
		Endpoint:  pc.BaseURL,
		AccessKey: pc.AccessKey,
		SecretKey: pc.SecretKey,
		Logger:    logger,
	}
}

// BuildBackends creates one registry backend per provider spec.
func BuildBackends(
	ctx context.Context, cfg *config.Config, specs []provider.Spec, cache CacheStore, logger *zap.Logger,
) ([]embeddinguc.Backend, error) {
	if !cfg.EmbeddingCache.Enabled {
		cache = nil
	}
	ttl := time.Duration(cfg.EmbeddingCache.TTLSec) * time.Second

	backends := make([]embeddinguc.Backend, 0, len(specs))
	for _, spec := range specs {
		pc := providerConfig(cfg.Providers, spec.ID())
		base, err := NewBaseEmbedder(ctx, spec, pc, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", spec.ID(), err)
		}
		backends = append(backends, embeddinguc.Backend{
			Spec:     spec,
			Embedder: Decorate(base, spec, pc, cache, ttl, logger),
		})
		logger.Info("Embedder created",
			zap.String("provider", string(spec.ID())),
			zap.String("kind", pc.Kind),
			zap.String("model", pc.Model),
			zap.Int("dimensions", spec.Dimensions()),
			zap.Bool("cached", cache != nil),
		)
	}
	return backends, nil
}

// providerConfig finds the config entry of a parsed id; config keys may differ in case.
func providerConfig(providers map[string]config.ProviderConfig, id provider.ID) config.ProviderConfig {
	if pc, ok := providers[string(id)]; ok {
		return pc
	}
	for raw, pc := range providers {
		if parsed, err := provider.ParseID(raw); err == nil && parsed == id {
			return pc
		}
	}
	return config.ProviderConfig{}
}
