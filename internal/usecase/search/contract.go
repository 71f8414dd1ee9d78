package search

import (
	"context"

	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/plan"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	"github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
)

// Index is the document index the pipeline queries. Implementations translate
// the plans into their native query language.
type Index interface {
	Count(ctx context.Context, q plan.Count) (int, error)
	VectorSearch(ctx context.Context, q plan.Similarity) ([]result.RawHit, error)
	List(ctx context.Context, q plan.Listing) ([]result.RawHit, error)
}

// Vectorizer resolves a provider and a source into a query vector.
type Vectorizer interface {
	Embed(ctx context.Context, id provider.ID, src embedding.Source) ([]float32, error)
}

// Providers looks up provider specs.
type Providers interface {
	Lookup(id provider.ID) (embedding.Backend, error)
}
