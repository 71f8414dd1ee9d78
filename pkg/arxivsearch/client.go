package arxivsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/arxivsearch/internal/db/redis"
	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/request"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	"github.com/kailas-cloud/arxivsearch/internal/repository/papers"
	embeddinguc "github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/arxivsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/arxivsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultK                = 15
	defaultLimit            = 20
)

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Similar(ctx context.Context, req request.Similarity) (result.Response, error)
	List(ctx context.Context, req request.Listing) (result.Response, error)
}

type providerUseCase interface {
	Specs() []provider.Spec
}

type indexStore interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the arxivsearch SDK entry point.
type Client struct {
	store     indexStore
	searchSvc searchUseCase
	providers providerUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New connects to the index and wires the search pipeline.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexName: domain.IndexName,
		keyPrefix: domain.KeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("arxivsearch: database address required (use WithRedis or WithValkey)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:     cfg.addrs,
		Password:  cfg.password,
		Valkey:    cfg.valkey,
		KeyPrefix: cfg.keyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("arxivsearch: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("arxivsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	repo := papers.New(store, cfg.indexName, cfg.keyPrefix)

	backends, err := buildBackends(cfg.providers)
	if err != nil {
		return nil, err
	}
	registry, err := embeddinguc.NewRegistry(backends...)
	if err != nil {
		return nil, fmt.Errorf("arxivsearch: %w", err)
	}

	gateway := embeddinguc.NewGateway(registry, repo, zap.NewNop())
	searchSvc := searchuc.New(repo, gateway, registry, searchuc.Options{
		CategoriesOperator: filter.CategoriesAny,
	})

	checkers := make(map[provider.ID]healthuc.EmbeddingChecker)
	for id, hc := range registry.HealthCheckers() {
		checkers[id] = hc
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		providers: registry,
		healthSvc: healthuc.New(repo, checkers),
		obs:       obs,
	}, nil
}

func buildBackends(providers []providerConfig) ([]embeddinguc.Backend, error) {
	if len(providers) == 0 {
		specs := provider.DefaultSpecs()
		backends := make([]embeddinguc.Backend, len(specs))
		for i, s := range specs {
			backends[i] = embeddinguc.Backend{Spec: s}
		}
		return backends, nil
	}

	backends := make([]embeddinguc.Backend, 0, len(providers))
	for _, p := range providers {
		id, err := provider.ParseID(p.id)
		if err != nil {
			return nil, fmt.Errorf("arxivsearch: %w", err)
		}
		spec, err := provider.NewSpec(id, p.vectorField, p.dimensions, "")
		if err != nil {
			return nil, fmt.Errorf("arxivsearch: %w", err)
		}
		backends = append(backends, embeddinguc.Backend{Spec: spec, Embedder: adaptEmbedder(p.embedder)})
	}
	return backends, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", "", start, 0, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ByPaper returns the papers nearest to the stored vector of paperID.
func (c *Client) ByPaper(ctx context.Context, paperID string, q Query) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("by_paper", q.Provider, start, len(resp.Papers), err) }()

	id, err := parseProvider(q.Provider)
	if err != nil {
		return Response{}, err
	}
	req, err := request.NewByReference(paperID, id, q.filters(), q.k())
	if err != nil {
		return Response{}, err
	}
	return c.similar(ctx, req)
}

// ByText embeds text with the query's provider and returns the nearest papers.
func (c *Client) ByText(ctx context.Context, text string, q Query) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("by_text", q.Provider, start, len(resp.Papers), err) }()

	id, err := parseProvider(q.Provider)
	if err != nil {
		return Response{}, err
	}
	req, err := request.NewByText(text, id, q.filters(), q.k())
	if err != nil {
		return Response{}, err
	}
	return c.similar(ctx, req)
}

func (c *Client) similar(ctx context.Context, req request.Similarity) (Response, error) {
	res, err := c.searchSvc.Similar(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	return fromResponse(res), nil
}

// List pages through the papers matching the filters, without ranking.
func (c *Client) List(ctx context.Context, p Page) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list", "", start, len(resp.Papers), err) }()

	limit := p.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	req, err := request.NewListing(request.FilterInputs{
		Years:      p.Years,
		Categories: p.Categories,
		Operator:   categoriesOperator(p.MatchAllCategories),
	}, p.Offset, limit)
	if err != nil {
		return Response{}, err
	}

	res, err := c.searchSvc.List(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("list: %w", err)
	}
	return fromResponse(res), nil
}

// Providers returns the registered providers in registration order.
func (c *Client) Providers() []ProviderInfo {
	specs := c.providers.Specs()
	out := make([]ProviderInfo, len(specs))
	for i, s := range specs {
		out[i] = ProviderInfo{
			ID:          string(s.ID()),
			VectorField: s.VectorField(),
			Dimensions:  s.Dimensions(),
			Model:       s.Model(),
		}
	}
	return out
}

func (q Query) filters() request.FilterInputs {
	return request.FilterInputs{
		Years:      q.Years,
		Categories: q.Categories,
		Operator:   categoriesOperator(q.MatchAllCategories),
	}
}

func (q Query) k() int {
	if q.K == 0 {
		return defaultK
	}
	return q.K
}

func categoriesOperator(matchAll bool) filter.CategoriesOperator {
	if matchAll {
		return filter.CategoriesAll
	}
	return filter.CategoriesAny
}

func parseProvider(raw string) (provider.ID, error) {
	if raw == "" {
		return provider.Default, nil
	}
	id, err := provider.ParseID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return id, nil
}

func fromResponse(res result.Response) Response {
	results := res.Results()
	out := Response{Total: res.Total(), Papers: make([]Paper, len(results))}
	for i, r := range results {
		p := r.Paper()
		out.Papers[i] = Paper{
			ID:         p.ID(),
			Authors:    p.Authors(),
			Title:      p.Title(),
			Abstract:   p.Abstract(),
			Year:       p.Year(),
			Categories: p.Categories(),
		}
		if d, ok := r.Distance(); ok {
			score, _ := r.Score()
			out.Papers[i].Distance = d
			out.Papers[i].Score = score
			out.Papers[i].Scored = true
		}
	}
	return out
}

// embedderAdapter bridges the public Embedder to domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// checkingAdapter also forwards HealthCheck when the user embedder has one.
type checkingAdapter struct {
	embedderAdapter
	checker interface{ HealthCheck(ctx context.Context) error }
}

func (a *checkingAdapter) HealthCheck(ctx context.Context) error {
	return a.checker.HealthCheck(ctx)
}

func adaptEmbedder(e Embedder) domain.Embedder {
	if e == nil {
		return nil
	}
	if hc, ok := e.(interface{ HealthCheck(ctx context.Context) error }); ok {
		return &checkingAdapter{embedderAdapter: embedderAdapter{inner: e}, checker: hc}
	}
	return &embedderAdapter{inner: e}
}
