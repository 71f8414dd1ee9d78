package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/text"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

// vectorStore is the consumer interface for stored paper vectors (ISP).
// Implementations return a *domain.NotFoundError when the paper or its vector is absent.
type vectorStore interface {
	FetchVector(ctx context.Context, paperID string, spec provider.Spec) ([]float32, error)
}

type sourceKind int

const (
	sourceText sourceKind = iota
	sourceStored
)

// Source is where a query vector comes from.
type Source struct {
	kind    sourceKind
	text    string
	paperID string
}

// RawText embeds free text after normalization.
func RawText(s string) Source { return Source{kind: sourceText, text: s} }

// StoredVectorRef reuses the vector stored for a paper.
func StoredVectorRef(paperID string) Source { return Source{kind: sourceStored, paperID: paperID} }

// Gateway resolves a provider and a source into a query vector.
type Gateway struct {
	registry *Registry
	vectors  vectorStore
	logger   *zap.Logger
}

// NewGateway creates a gateway over the registry and the stored vectors.
func NewGateway(registry *Registry, vectors vectorStore, logger *zap.Logger) *Gateway {
	return &Gateway{registry: registry, vectors: vectors, logger: logger}
}

// Registry returns the provider table the gateway dispatches through.
func (g *Gateway) Registry() *Registry { return g.registry }

// Embed returns a vector of the provider's dimension or a typed error:
// ErrValidation (unknown provider, empty text), ErrNotFound (stored vector absent),
// ErrProvider (backend failure, wrong dimension), ErrIndex (vector fetch failed).
func (g *Gateway) Embed(ctx context.Context, id provider.ID, src Source) ([]float32, error) {
	backend, err := g.registry.Lookup(id)
	if err != nil {
		return nil, err
	}

	if src.kind == sourceStored {
		return g.fetchStored(ctx, backend.Spec, src.paperID)
	}
	return g.embedText(ctx, backend, src.text)
}

func (g *Gateway) fetchStored(ctx context.Context, spec provider.Spec, paperID string) ([]float32, error) {
	vec, err := g.vectors.FetchVector(ctx, paperID, spec)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch vector: %w", domain.ErrIndex, err)
	}
	if len(vec) == 0 {
		return nil, domain.NewVectorNotFound(paperID, string(spec.ID()))
	}
	if len(vec) != spec.Dimensions() {
		return nil, fmt.Errorf("%w: stored %s vector of %s has %d dimensions, want %d",
			domain.ErrIndex, spec.ID(), paperID, len(vec), spec.Dimensions())
	}
	return vec, nil
}

func (g *Gateway) embedText(ctx context.Context, backend Backend, raw string) ([]float32, error) {
	spec := backend.Spec
	if backend.Embedder == nil {
		return nil, fmt.Errorf("%w: provider %s does not accept text queries", domain.ErrValidation, spec.ID())
	}

	normalized := text.Normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: user_text has no searchable characters", domain.ErrValidation)
	}

	result, err := backend.Embedder.Embed(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrProvider, spec.ID(), err)
	}

	if got := len(result.Embedding); got != spec.Dimensions() {
		metrics.EmbeddingDimensionMismatchTotal.WithLabelValues(string(spec.ID())).Inc()
		g.logger.Error("Embedding dimension mismatch",
			zap.String("provider", string(spec.ID())),
			zap.Int("want", spec.Dimensions()),
			zap.Int("got", got),
		)
		return nil, &domain.DimensionMismatchError{
			Provider: string(spec.ID()),
			Want:     spec.Dimensions(),
			Got:      got,
		}
	}
	return result.Embedding, nil
}
