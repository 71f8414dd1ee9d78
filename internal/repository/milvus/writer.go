package milvus

import (
	"context"
	"fmt"
	"time"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

const (
	shards = 2

	maxIDLength       = 64
	maxYearLength     = 8
	maxCategoryLength = 1024
	maxTextLength     = 65535

	loadedPercent = 100
)

// DefaultPollInterval is how often WaitIndexed re-reads loading progress.
const DefaultPollInterval = 5 * time.Second

// writeClient is the consumer interface for loading papers (ISP).
type writeClient interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	DropCollection(ctx context.Context, collName string, opts ...milvusclient.DropCollectionOption) error
	CreateCollection(
		ctx context.Context, schema *milvusentity.Schema, shardsNum int32,
		opts ...milvusclient.CreateCollectionOption,
	) error
	CreateIndex(
		ctx context.Context, collName, fieldName string, idx milvusentity.Index,
		async bool, opts ...milvusclient.IndexOption,
	) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...milvusclient.LoadCollectionOption) error
	Insert(ctx context.Context, collName, partitionName string, columns ...milvusentity.Column) (milvusentity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...milvusclient.FlushOption) error
	GetLoadingProgress(ctx context.Context, collName string, partitionNames []string) (int64, error)
}

// Writer creates the paper collection and inserts papers.
type Writer struct {
	client     writeClient
	collection string
	ef         int
	specs      []provider.Spec
	poll       time.Duration
}

// NewWriter creates a writer for papers carrying vectors of specs;
// ef > 0 builds HNSW indexes, otherwise FLAT.
func NewWriter(c writeClient, collection string, ef int, specs []provider.Spec) *Writer {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Writer{client: c, collection: collection, ef: ef, specs: specs, poll: DefaultPollInterval}
}

// Schema describes the paper collection: string scalar fields keyed by paper_id
// and one float vector field per provider.
func (w *Writer) Schema(specs []provider.Spec) *milvusentity.Schema {
	schema := milvusentity.NewSchema().WithName(w.collection).WithDescription("arXiv papers")
	schema.WithField(milvusentity.NewField().WithName(domain.FieldPaperID).
		WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxIDLength).WithIsPrimaryKey(true))
	schema.WithField(milvusentity.NewField().WithName(domain.FieldAuthors).
		WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxTextLength))
	schema.WithField(milvusentity.NewField().WithName(domain.FieldTitle).
		WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxTextLength))
	schema.WithField(milvusentity.NewField().WithName(domain.FieldYear).
		WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxYearLength))
	schema.WithField(milvusentity.NewField().WithName(domain.FieldCategories).
		WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxCategoryLength))
	for _, s := range specs {
		schema.WithField(milvusentity.NewField().WithName(s.VectorField()).
			WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(s.Dimensions())))
	}
	return schema
}

// EnsureIndex creates, indexes and loads the collection when absent.
// With recreate an existing collection and its data are dropped first.
func (w *Writer) EnsureIndex(ctx context.Context, specs []provider.Spec, recreate bool) (bool, error) {
	exists, err := w.client.HasCollection(ctx, w.collection)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", w.collection, err)
	}
	if exists && !recreate {
		return false, w.load(ctx)
	}
	if exists {
		if err := w.client.DropCollection(ctx, w.collection); err != nil {
			return false, fmt.Errorf("drop collection %s: %w", w.collection, err)
		}
	}

	err = w.client.CreateCollection(ctx, w.Schema(specs), shards)
	metrics.ObserveIndexOp(backend, "create_index", err)
	if err != nil {
		return false, fmt.Errorf("create collection %s: %w", w.collection, err)
	}

	for _, s := range specs {
		idx, err := w.vectorIndex()
		if err != nil {
			return false, fmt.Errorf("index params for %s: %w", s.VectorField(), err)
		}
		if err := w.client.CreateIndex(ctx, w.collection, s.VectorField(), idx, false); err != nil {
			return false, fmt.Errorf("index %s: %w", s.VectorField(), err)
		}
	}
	return true, w.load(ctx)
}

// Save inserts a batch of papers. Milvus requires every vector field on every row;
// missing vectors are stored as zero vectors and read back as not found.
func (w *Writer) Save(ctx context.Context, records []paper.Record) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	ids := make([]string, n)
	authors := make([]string, n)
	titles := make([]string, n)
	years := make([]string, n)
	cats := make([]string, n)
	for i, rec := range records {
		p := rec.Paper
		ids[i] = p.ID()
		authors[i] = p.Authors()
		titles[i] = p.Title()
		years[i] = p.Year()
		cats[i] = wrapTags(p.Categories())
	}

	columns := []milvusentity.Column{
		milvusentity.NewColumnVarChar(domain.FieldPaperID, ids),
		milvusentity.NewColumnVarChar(domain.FieldAuthors, authors),
		milvusentity.NewColumnVarChar(domain.FieldTitle, titles),
		milvusentity.NewColumnVarChar(domain.FieldYear, years),
		milvusentity.NewColumnVarChar(domain.FieldCategories, cats),
	}
	for _, s := range w.specs {
		vecs := make([][]float32, n)
		for i, rec := range records {
			v := rec.Vectors[s.VectorField()]
			if len(v) != s.Dimensions() {
				v = make([]float32, s.Dimensions())
			}
			vecs[i] = v
		}
		columns = append(columns, milvusentity.NewColumnFloatVector(s.VectorField(), s.Dimensions(), vecs))
	}

	_, err := w.client.Insert(ctx, w.collection, "", columns...)
	metrics.ObserveIndexOp(backend, "save", err)
	if err != nil {
		return fmt.Errorf("insert %d papers: %w", n, err)
	}
	return nil
}

// WaitIndexed seals inserted segments and blocks until the collection is fully
// loaded for search.
func (w *Writer) WaitIndexed(ctx context.Context) error {
	if err := w.client.Flush(ctx, w.collection, false); err != nil {
		return fmt.Errorf("flush collection %s: %w", w.collection, err)
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		pct, err := w.client.GetLoadingProgress(ctx, w.collection, nil)
		if err != nil {
			return fmt.Errorf("loading progress %s: %w", w.collection, err)
		}
		if pct >= loadedPercent {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for collection %s at %d%%: %w", w.collection, pct, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (w *Writer) vectorIndex() (milvusentity.Index, error) {
	if w.ef > 0 {
		return milvusentity.NewIndexHNSW(milvusentity.COSINE, 16, 200) //nolint:wrapcheck // wrapped by caller
	}
	return milvusentity.NewIndexFlat(milvusentity.COSINE) //nolint:wrapcheck // wrapped by caller
}

func (w *Writer) load(ctx context.Context) error {
	if err := w.client.LoadCollection(ctx, w.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", w.collection, err)
	}
	return nil
}
