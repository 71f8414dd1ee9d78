package arxivsearch

import (
	"context"

	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/request"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/arxivsearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	similarFn func(ctx context.Context, req request.Similarity) (result.Response, error)
	listFn    func(ctx context.Context, req request.Listing) (result.Response, error)
}

func (m *mockSearchUC) Similar(ctx context.Context, req request.Similarity) (result.Response, error) {
	return m.similarFn(ctx, req)
}

func (m *mockSearchUC) List(ctx context.Context, req request.Listing) (result.Response, error) {
	return m.listFn(ctx, req)
}

// --- providerUseCase mock ---

type mockProviders struct {
	specs []provider.Spec
}

func (m *mockProviders) Specs() []provider.Spec { return m.specs }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- indexStore mock ---

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type checkingEmbedder struct {
	mockEmbedder
	healthErr error
}

func (m *checkingEmbedder) HealthCheck(context.Context) error { return m.healthErr }

// newTestClient builds a Client over mocks.
func newTestClient(search *mockSearchUC) *Client {
	return &Client{
		store:     &mockStore{},
		searchSvc: search,
		providers: &mockProviders{specs: provider.DefaultSpecs()},
		healthSvc: &mockHealthUC{},
	}
}

func scoredResponse() result.Response {
	p := paper.New("2101.00001", "A. Author", "Graphs", "About graphs", "2021", []string{"cs.LG", "stat.ML"})
	return result.Assemble(42, []result.RawHit{result.NewHit(p, 0.25)})
}
