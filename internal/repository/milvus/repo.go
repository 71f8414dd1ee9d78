// Package milvus implements the paper index on a Milvus collection.
package milvus

import (
	"context"
	"fmt"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/plan"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

const (
	backend = "milvus"

	// DefaultCollection holds the papers when no collection is configured.
	DefaultCollection = "papers"

	countField = "count(*)"
)

// milvusClient is the consumer interface over the Milvus SDK client (ISP).
type milvusClient interface {
	Search(
		ctx context.Context, collName string, partitions []string,
		expr string, outputFields []string, vectors []milvusentity.Vector,
		vectorField string, metricType milvusentity.MetricType, topK int,
		sp milvusentity.SearchParam, opts ...milvusclient.SearchQueryOptionFunc,
	) ([]milvusclient.SearchResult, error)
	Query(
		ctx context.Context, collectionName string, partitionNames []string,
		expr string, outputFields []string, opts ...milvusclient.SearchQueryOptionFunc,
	) (milvusclient.ResultSet, error)
	HasCollection(ctx context.Context, collName string) (bool, error)
}

// Config selects the collection and search parameters.
type Config struct {
	Collection string
	// EF is the HNSW search list size; zero searches a FLAT index.
	EF     int
	Metric milvusentity.MetricType
}

// Repo implements usecase/search.Index and the gateway's vector store over Milvus.
type Repo struct {
	client     milvusClient
	collection string
	ef         int
	metric     milvusentity.MetricType
}

// New creates a Milvus paper repository.
func New(c milvusClient, cfg Config) *Repo {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Metric == "" {
		cfg.Metric = milvusentity.COSINE
	}
	return &Repo{client: c, collection: cfg.Collection, ef: cfg.EF, metric: cfg.Metric}
}

// Ping checks that the collection is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	ok, err := r.client.HasCollection(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("%w: milvus: %w", domain.ErrIndex, err)
	}
	if !ok {
		return fmt.Errorf("%w: collection %q not found", domain.ErrIndex, r.collection)
	}
	return nil
}

// Count returns the number of papers matching the filter via count(*).
func (r *Repo) Count(ctx context.Context, q plan.Count) (int, error) {
	rs, err := r.client.Query(ctx, r.collection, nil, buildExpr(q.Filter()), []string{countField})
	metrics.ObserveIndexOp(backend, "count", err)
	if err != nil {
		return 0, fmt.Errorf("%w: count papers: %w", domain.ErrIndex, err)
	}

	col, ok := column(rs, countField).(*milvusentity.ColumnInt64)
	if !ok || col.Len() == 0 {
		return 0, fmt.Errorf("%w: count papers: malformed reply", domain.ErrIndex)
	}
	return int(col.Data()[0]), nil
}

// VectorSearch runs the KNN query against the provider's vector field.
func (r *Repo) VectorSearch(ctx context.Context, q plan.Similarity) ([]result.RawHit, error) {
	sp, err := r.searchParam()
	if err != nil {
		return nil, fmt.Errorf("%w: search param: %w", domain.ErrIndex, err)
	}

	res, err := r.client.Search(
		ctx,
		r.collection,
		nil,
		buildExpr(q.Filter()),
		paperFields(q.ReturnFields()),
		[]milvusentity.Vector{milvusentity.FloatVector(q.Vector())},
		q.VectorField(),
		r.metric,
		q.K(),
		sp,
	)
	metrics.ObserveIndexOp(backend, "knn", err)
	if err != nil {
		return nil, fmt.Errorf("%w: knn over %s: %w", domain.ErrIndex, q.VectorField(), err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	sr := res[0]
	if sr.Err != nil {
		return nil, fmt.Errorf("%w: knn over %s: %w", domain.ErrIndex, q.VectorField(), sr.Err)
	}

	hits := make([]result.RawHit, 0, sr.ResultCount)
	for i := 0; i < sr.ResultCount && i < len(sr.Scores); i++ {
		fields := rowFields(sr.Fields, i)
		id, _ := stringAt(sr.IDs, i)
		hits = append(hits, result.NewHit(paper.FromFields(id, fields), r.distance(sr.Scores[i])))
	}
	return hits, nil
}

// List returns one page of papers ordered by primary key.
func (r *Repo) List(ctx context.Context, q plan.Listing) ([]result.RawHit, error) {
	rs, err := r.client.Query(
		ctx, r.collection, nil, buildExpr(q.Filter()),
		paperFields(domain.DefaultReturnFields()),
		milvusclient.WithOffset(int64(q.Offset())),
		milvusclient.WithLimit(int64(q.Limit())),
	)
	metrics.ObserveIndexOp(backend, "list", err)
	if err != nil {
		return nil, fmt.Errorf("%w: list papers: %w", domain.ErrIndex, err)
	}

	n := rowCount(rs)
	hits := make([]result.RawHit, 0, n)
	for i := range n {
		hits = append(hits, result.NewPlainHit(paper.FromFields("", rowFields(rs, i))))
	}
	return hits, nil
}

// FetchVector reads the stored vector of a paper for the provider's field.
func (r *Repo) FetchVector(ctx context.Context, paperID string, spec provider.Spec) ([]float32, error) {
	expr := domain.FieldPaperID + " == " + quote(paperID)
	rs, err := r.client.Query(ctx, r.collection, nil, expr, []string{spec.VectorField()})
	metrics.ObserveIndexOp(backend, "fetch_vector", err)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch vector of %s: %w", domain.ErrIndex, paperID, err)
	}

	col := column(rs, spec.VectorField())
	if col == nil || col.Len() == 0 {
		return nil, domain.NewPaperNotFound(paperID)
	}
	vecs, ok := col.(*milvusentity.ColumnFloatVector)
	if !ok {
		return nil, fmt.Errorf("%w: field %s is not a float vector", domain.ErrIndex, spec.VectorField())
	}
	vec := vecs.Data()[0]
	if len(vec) == 0 || isZero(vec) {
		return nil, domain.NewVectorNotFound(paperID, string(spec.ID()))
	}
	return vec, nil
}

func (r *Repo) searchParam() (milvusentity.SearchParam, error) {
	if r.ef > 0 {
		return milvusentity.NewIndexHNSWSearchParam(r.ef) //nolint:wrapcheck // wrapped by caller
	}
	return milvusentity.NewIndexFlatSearchParam() //nolint:wrapcheck // wrapped by caller
}

// distance converts a Milvus score into the index distance the pipeline expects.
// COSINE and IP report similarity; L2 reports distance already.
func (r *Repo) distance(score float32) float64 {
	if r.metric == milvusentity.L2 {
		return float64(score)
	}
	return 1 - float64(score)
}

// paperFields drops the distance alias, which is not a collection field.
func paperFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != domain.FieldDistance {
			out = append(out, f)
		}
	}
	return out
}

func column(cols []milvusentity.Column, name string) milvusentity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func rowCount(cols []milvusentity.Column) int {
	if len(cols) == 0 || cols[0] == nil {
		return 0
	}
	return cols[0].Len()
}

func rowFields(cols []milvusentity.Column, i int) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		if v, ok := stringAt(c, i); ok {
			m[c.Name()] = v
		}
	}
	return m
}

func stringAt(c milvusentity.Column, i int) (string, bool) {
	col, ok := c.(*milvusentity.ColumnVarChar)
	if !ok || i >= len(col.Data()) {
		return "", false
	}
	return col.Data()[i], true
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
