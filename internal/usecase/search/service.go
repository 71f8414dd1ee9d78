package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/plan"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/request"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	"github.com/kailas-cloud/arxivsearch/internal/logger"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
	"github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
)

var tracer = otel.Tracer("arxivsearch/search")

// Options tunes filter building and projection.
type Options struct {
	// ReturnFields overrides the fields projected by similarity queries.
	ReturnFields []string
	// CutCategoryDescription keeps only the first token of every requested category.
	CutCategoryDescription bool
	// CategoriesOperator applies when a request leaves the operator empty.
	CategoriesOperator filter.CategoriesOperator
}

// Service runs the similarity and listing pipelines.
type Service struct {
	index     Index
	vectors   Vectorizer
	providers Providers
	opts      Options
}

// New creates a search service.
func New(index Index, vectors Vectorizer, providers Providers, opts Options) *Service {
	return &Service{index: index, vectors: vectors, providers: providers, opts: opts}
}

// Similar finds the k papers nearest to a reference paper or to free text.
// Vector resolution and the filter count run concurrently; the first failure
// cancels the other and aborts the request.
func (s *Service) Similar(ctx context.Context, req request.Similarity) (result.Response, error) {
	op := "by_" + req.Source().String()
	ctx, span := tracer.Start(ctx, "search."+op, trace.WithAttributes(
		attribute.String("provider", string(req.Provider())),
		attribute.Int("k", req.K()),
	))
	defer span.End()
	ctx = logger.WithSearch(ctx, op, string(req.Provider()))
	start := time.Now()

	resp, err := s.similar(ctx, span, req)
	s.observe(ctx, span, op, start, resp, err)
	return resp, err
}

func (s *Service) similar(ctx context.Context, span trace.Span, req request.Similarity) (result.Response, error) {
	backend, err := s.providers.Lookup(req.Provider())
	if err != nil {
		return result.Response{}, err
	}
	f := s.buildFilter(req.Filters())

	src := embedding.RawText(req.Text())
	if req.Source() == request.SourceReference {
		src = embedding.StoredVectorRef(req.PaperID())
	}

	var (
		total  int
		vector []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.vectors.Embed(gctx, req.Provider(), src)
		if err != nil {
			return fmt.Errorf("resolve vector: %w", err)
		}
		vector = v
		span.AddEvent("vector resolved")
		return nil
	})
	g.Go(func() error {
		n, err := s.index.Count(gctx, plan.CountOf(f))
		if err != nil {
			return indexError("count", err)
		}
		total = n
		span.AddEvent("count done", trace.WithAttributes(attribute.Int("total", n)))
		return nil
	})
	if err := g.Wait(); err != nil {
		return result.Response{}, err //nolint:wrapcheck // already wrapped per branch
	}

	q := plan.SimilarityOf(f, vector, backend.Spec, req.K(), s.opts.ReturnFields)
	hits, err := s.index.VectorSearch(ctx, q)
	if err != nil {
		return result.Response{}, indexError("vector search", err)
	}

	return result.Assemble(total, hits), nil
}

// List pages through papers matching the filters, without ranking.
func (s *Service) List(ctx context.Context, req request.Listing) (result.Response, error) {
	ctx, span := tracer.Start(ctx, "search.list", trace.WithAttributes(
		attribute.Int("offset", req.Offset()),
		attribute.Int("limit", req.Limit()),
	))
	defer span.End()
	ctx = logger.WithSearch(ctx, "list", "")
	start := time.Now()

	resp, err := s.list(ctx, req)
	s.observe(ctx, span, "list", start, resp, err)
	return resp, err
}

func (s *Service) list(ctx context.Context, req request.Listing) (result.Response, error) {
	f := s.buildFilter(req.Filters())

	var (
		total int
		hits  []result.RawHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.index.Count(gctx, plan.CountOf(f))
		if err != nil {
			return indexError("count", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		h, err := s.index.List(gctx, plan.ListingOf(f, req.Offset(), req.Limit()))
		if err != nil {
			return indexError("list", err)
		}
		hits = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return result.Response{}, err //nolint:wrapcheck // already wrapped per branch
	}

	return result.Assemble(total, hits), nil
}

func (s *Service) buildFilter(in request.FilterInputs) filter.Expression {
	op := in.Operator
	if op == "" {
		op = s.opts.CategoriesOperator
	}
	opts := []filter.BuildOption{filter.WithCategoriesOperator(op)}
	if s.opts.CutCategoryDescription {
		opts = append(opts, filter.WithCategoryNormalizer(filter.CutCategoryDescription))
	}
	return filter.Build(in.Years, in.Categories, opts...)
}

func (s *Service) observe(
	ctx context.Context, span trace.Span, op string,
	start time.Time, resp result.Response, err error,
) {
	duration := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.FromContext(ctx).Warn("Search failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		span.SetAttributes(attribute.Int("total", resp.Total()))
		metrics.SearchResultsReturned.WithLabelValues(op).Observe(float64(len(resp.Results())))
		logger.FromContext(ctx).Debug("Search completed",
			zap.Duration("duration", duration),
			zap.Int("total", resp.Total()),
			zap.Int("returned", len(resp.Results())),
		)
	}
	metrics.SearchDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

// indexError keeps typed domain errors and marks everything else as an index failure.
func indexError(op string, err error) error {
	if errors.Is(err, domain.ErrIndex) || errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndex, op, err)
}
