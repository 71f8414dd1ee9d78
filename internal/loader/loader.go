package loader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

// Defaults for Options.
const (
	DefaultConcurrency = 150
	DefaultBatchSize   = 100
)

// sink is the index writer the loader fills (ISP). Implemented by the Redis and Milvus writers.
type sink interface {
	EnsureIndex(ctx context.Context, specs []provider.Spec, recreate bool) (bool, error)
	Save(ctx context.Context, records []paper.Record) error
	WaitIndexed(ctx context.Context) error
}

// source yields the raw dataset.
type source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Options tune the write pool.
type Options struct {
	Concurrency int
	BatchSize   int
	Recreate    bool
}

// Summary reports what a Load run did.
type Summary struct {
	IndexCreated bool
	Papers       int
	Batches      int
	Duration     time.Duration
}

// Loader creates the index and writes the dataset into it.
type Loader struct {
	sink   sink
	source source
	specs  []provider.Spec
	opts   Options
	logger *zap.Logger
}

// New creates a loader.
func New(s sink, src source, specs []provider.Spec, opts Options, logger *zap.Logger) *Loader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{sink: s, source: src, specs: specs, opts: opts, logger: logger}
}

// Load ensures the index and, when it was just created, writes every paper.
// An index that already exists is left untouched. Either way Load returns once
// the backend reports indexing complete.
func (l *Loader) Load(ctx context.Context) (Summary, error) {
	start := time.Now()

	created, err := l.sink.EnsureIndex(ctx, l.specs, l.opts.Recreate)
	if err != nil {
		return Summary{}, fmt.Errorf("ensure index: %w", err)
	}
	if !created {
		l.logger.Info("index already exists, skipping data load")
		if err := l.waitIndexed(ctx); err != nil {
			return Summary{Duration: time.Since(start)}, err
		}
		return Summary{Duration: time.Since(start)}, nil
	}
	l.logger.Info("index created")

	rc, err := l.source.Open(ctx)
	if err != nil {
		return Summary{IndexCreated: true}, err
	}
	records, err := Decode(rc, l.specs)
	_ = rc.Close()
	if err != nil {
		return Summary{IndexCreated: true}, err
	}

	batches, err := l.Write(ctx, records)
	sum := Summary{
		IndexCreated: true,
		Papers:       len(records),
		Batches:      batches,
	}
	if err != nil {
		sum.Duration = time.Since(start)
		return sum, err
	}
	l.logger.Info("all papers loaded", zap.Int("papers", sum.Papers), zap.Int("batches", sum.Batches))

	err = l.waitIndexed(ctx)
	sum.Duration = time.Since(start)
	if err != nil {
		return sum, err
	}
	l.logger.Info("indexing complete", zap.Duration("duration", sum.Duration))
	return sum, nil
}

func (l *Loader) waitIndexed(ctx context.Context) error {
	l.logger.Info("waiting for indexing to complete")
	if err := l.sink.WaitIndexed(ctx); err != nil {
		return fmt.Errorf("wait for indexing: %w", err)
	}
	return nil
}

// Write saves records in batches on a bounded pool. The first failing batch
// cancels the batches still queued.
func (l *Loader) Write(ctx context.Context, records []paper.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(l.opts.Concurrency)
	if err != nil {
		return 0, fmt.Errorf("create write pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		written  atomic.Int64
		batches  int
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(records); start += l.opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+l.opts.BatchSize, len(records))
		batch := records[start:end]
		batches++

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := l.sink.Save(ctx, batch); err != nil {
				fail(fmt.Errorf("save papers %d-%d: %w", start, end-1, err))
				return
			}
			n := written.Add(int64(len(batch)))
			l.logger.Debug("batch written", zap.Int64("written", n), zap.Int("total", len(records)))
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", submitErr))
		}
	}
	wg.Wait()

	if firstErr != nil {
		return batches, firstErr
	}
	if err := ctx.Err(); err != nil {
		return batches, fmt.Errorf("write papers: %w", err)
	}
	return batches, nil
}
