package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
	embeddinguc "github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/arxivsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/arxivsearch/internal/usecase/search"
)

// Services are the request-path services built on an opened index.
type Services struct {
	Registry *embeddinguc.Registry
	Search   *searchuc.Service
	Health   *healthuc.Service
}

// NewServices wires the registry, gateway, search and health services.
func NewServices(
	ctx context.Context, cfg *config.Config, idx *Index, specs []provider.Spec, logger *zap.Logger,
) (*Services, error) {
	backends, err := BuildBackends(ctx, cfg, specs, idx.Cache(), logger)
	if err != nil {
		return nil, err
	}
	registry, err := embeddinguc.NewRegistry(backends...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	op, err := filter.ParseCategoriesOperator(cfg.Search.CategoriesOperator)
	if err != nil {
		return nil, fmt.Errorf("search.categories_operator: %w", err)
	}

	gateway := embeddinguc.NewGateway(registry, idx.Papers, logger)
	searchSvc := searchuc.New(idx.Papers, gateway, registry, searchuc.Options{
		ReturnFields:           cfg.Index.ReturnFields,
		CutCategoryDescription: cfg.Search.CutCategoryDescription,
		CategoriesOperator:     op,
	})

	return &Services{
		Registry: registry,
		Search:   searchSvc,
		Health:   healthuc.New(idx.Papers, HealthCheckers(registry)),
	}, nil
}

// HealthCheckers adapts the registry's embedders to the health service.
func HealthCheckers(r *embeddinguc.Registry) map[provider.ID]healthuc.EmbeddingChecker {
	checkers := r.HealthCheckers()
	out := make(map[provider.ID]healthuc.EmbeddingChecker, len(checkers))
	for id, hc := range checkers {
		out[id] = hc
	}
	return out
}
