// Package papers adapts the Redis Search store to the search pipeline's index contract.
package papers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/db"
	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/plan"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

const backend = "redis"

// store is the consumer interface for paper queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.CountQuery) (int, error)
	HGet(ctx context.Context, key, field string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// Repo implements usecase/search.Index and the gateway's vector store over paper hashes.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a paper repository. Empty names fall back to the corpus defaults.
func New(s store, indexName, keyPrefix string) *Repo {
	if indexName == "" {
		indexName = domain.IndexName
	}
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	return &Repo{store: s, indexName: indexName, keyPrefix: keyPrefix}
}

// Ping checks the store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndex, err)
	}
	return nil
}

// Count returns the number of papers matching the filter.
func (r *Repo) Count(ctx context.Context, q plan.Count) (int, error) {
	n, err := r.store.SearchCount(ctx, &db.CountQuery{
		IndexName: r.indexName,
		Filter:    q.Filter(),
	})
	metrics.ObserveIndexOp(backend, "count", err)
	if err != nil {
		return 0, fmt.Errorf("%w: count papers: %w", domain.ErrIndex, err)
	}
	return n, nil
}

// VectorSearch runs the KNN query against the provider's vector field.
func (r *Repo) VectorSearch(ctx context.Context, q plan.Similarity) ([]result.RawHit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:     r.indexName,
		Filter:        q.Filter(),
		VectorField:   q.VectorField(),
		Vector:        q.Vector(),
		K:             q.K(),
		DistanceField: domain.FieldDistance,
		ReturnFields:  q.ReturnFields(),
	})
	metrics.ObserveIndexOp(backend, "knn", err)
	if err != nil {
		return nil, fmt.Errorf("%w: knn over %s: %w", domain.ErrIndex, q.VectorField(), err)
	}
	return r.hits(sr), nil
}

// List returns one page of papers matching the filter, in index order.
func (r *Repo) List(ctx context.Context, q plan.Listing) ([]result.RawHit, error) {
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.indexName,
		Filter:       q.Filter(),
		Offset:       q.Offset(),
		Limit:        q.Limit(),
		ReturnFields: listFields(),
	})
	metrics.ObserveIndexOp(backend, "list", err)
	if err != nil {
		return nil, fmt.Errorf("%w: list papers: %w", domain.ErrIndex, err)
	}
	return r.hits(sr), nil
}

// FetchVector reads the stored vector of a paper for the provider's field.
// A missing hash is a paper-not-found; a hash without the field is a vector-not-found.
func (r *Repo) FetchVector(ctx context.Context, paperID string, spec provider.Spec) ([]float32, error) {
	key := r.keyPrefix + paperID

	data, err := r.store.HGet(ctx, key, spec.VectorField())
	metrics.ObserveIndexOp(backend, "fetch_vector", ignoreMissing(err))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: fetch vector of %s: %w", domain.ErrIndex, paperID, err)
		}
		return nil, r.missing(ctx, key, paperID, spec)
	}
	if len(data) == 0 {
		return nil, domain.NewVectorNotFound(paperID, string(spec.ID()))
	}

	vec, err := db.DecodeVector(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode vector of %s: %w", domain.ErrIndex, paperID, err)
	}
	return vec, nil
}

func (r *Repo) missing(ctx context.Context, key, paperID string, spec provider.Spec) error {
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: check %s: %w", domain.ErrIndex, paperID, err)
	}
	if !ok {
		return domain.NewPaperNotFound(paperID)
	}
	return domain.NewVectorNotFound(paperID, string(spec.ID()))
}

func (r *Repo) hits(sr *db.SearchResult) []result.RawHit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	hits := make([]result.RawHit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		p := paper.FromFields(strings.TrimPrefix(e.Key, r.keyPrefix), e.Fields)
		if e.HasDistance {
			hits = append(hits, result.NewHit(p, e.Distance))
		} else {
			hits = append(hits, result.NewPlainHit(p))
		}
	}
	return hits
}

// listFields projects the paper fields of a listing; the distance alias does not exist there.
func listFields() []string {
	fields := domain.DefaultReturnFields()
	out := fields[:0]
	for _, f := range fields {
		if f != domain.FieldDistance {
			out = append(out, f)
		}
	}
	return out
}

func ignoreMissing(err error) error {
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil
	}
	return err
}
