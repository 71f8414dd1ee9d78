package papers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/arxivsearch/internal/db"
	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
)

// writeStore is the consumer interface for loading papers (ISP).
type writeStore interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	WaitForIndexed(ctx context.Context, name string, interval time.Duration) error
}

// DefaultPollInterval is how often WaitIndexed re-reads indexing progress.
const DefaultPollInterval = 5 * time.Second

// Writer creates the paper index and stores paper hashes.
type Writer struct {
	store     writeStore
	indexName string
	keyPrefix string
	algo      db.VectorAlgorithm
	poll      time.Duration
}

// NewWriter creates a writer. Empty names fall back to the corpus defaults.
func NewWriter(s writeStore, indexName, keyPrefix string, algo db.VectorAlgorithm) *Writer {
	if indexName == "" {
		indexName = domain.IndexName
	}
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	if algo == "" {
		algo = db.VectorFlat
	}
	return &Writer{store: s, indexName: indexName, keyPrefix: keyPrefix, algo: algo, poll: DefaultPollInterval}
}

// IndexDefinition describes the paper index: year and categories tags, a title text
// field and one cosine vector field per provider.
func (w *Writer) IndexDefinition(specs []provider.Spec) (*db.IndexDefinition, error) {
	b := db.NewIndex(w.indexName).
		Prefix(w.keyPrefix).
		Tag(domain.FieldYear).
		TagWithOpts(domain.FieldCategories, domain.TagSeparator, false).
		Text(domain.FieldTitle)
	for _, s := range specs {
		b = b.Vector(s.VectorField(), s.Dimensions(), w.algo, db.DistanceCosine)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("paper index definition: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the paper index when absent. With recreate an existing index
// is dropped first; documents stay in place and are re-indexed.
// It reports whether an index was created.
func (w *Writer) EnsureIndex(ctx context.Context, specs []provider.Spec, recreate bool) (bool, error) {
	def, err := w.IndexDefinition(specs)
	if err != nil {
		return false, err
	}

	exists, err := w.store.IndexExists(ctx, w.indexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", w.indexName, err)
	}
	if exists && !recreate {
		return false, nil
	}
	if exists {
		if err := w.store.DropIndex(ctx, w.indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", w.indexName, err)
		}
	}

	err = w.store.CreateIndex(ctx, def)
	metrics.ObserveIndexOp(backend, "create_index", err)
	if err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", w.indexName, err)
	}
	return true, nil
}

// WaitIndexed blocks until the index has caught up with every stored paper hash.
func (w *Writer) WaitIndexed(ctx context.Context) error {
	if err := w.store.WaitForIndexed(ctx, w.indexName, w.poll); err != nil {
		return fmt.Errorf("wait for index %s: %w", w.indexName, err)
	}
	return nil
}

// Save writes a batch of papers as hashes in one pipeline.
func (w *Writer) Save(ctx context.Context, records []paper.Record) error {
	if len(records) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		items[i] = db.HashSetItem{
			Key:    w.keyPrefix + rec.Paper.ID(),
			Fields: hashFields(rec),
		}
	}
	err := w.store.HSetMulti(ctx, items)
	metrics.ObserveIndexOp(backend, "save", err)
	if err != nil {
		return fmt.Errorf("save %d papers: %w", len(records), err)
	}
	return nil
}

func hashFields(rec paper.Record) map[string]string {
	p := rec.Paper
	fields := map[string]string{
		domain.FieldPaperID:    p.ID(),
		domain.FieldAuthors:    p.Authors(),
		domain.FieldTitle:      p.Title(),
		domain.FieldYear:       p.Year(),
		domain.FieldCategories: paper.JoinCategories(p.Categories()),
	}
	if p.Abstract() != "" {
		fields[domain.FieldAbstract] = p.Abstract()
	}
	for field, vec := range rec.Vectors {
		if len(vec) > 0 {
			fields[field] = string(db.EncodeVector(vec))
		}
	}
	return fields
}
