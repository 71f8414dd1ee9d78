package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/request"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/arxivsearch/internal/usecase/health"
)

type mockSearcher struct {
	similarFn func(req request.Similarity) (result.Response, error)
	listFn    func(req request.Listing) (result.Response, error)

	lastSimilar *request.Similarity
	lastListing *request.Listing
}

func (m *mockSearcher) Similar(_ context.Context, req request.Similarity) (result.Response, error) {
	m.lastSimilar = &req
	if m.similarFn != nil {
		return m.similarFn(req)
	}
	return result.Assemble(0, nil), nil
}

func (m *mockSearcher) List(_ context.Context, req request.Listing) (result.Response, error) {
	m.lastListing = &req
	if m.listFn != nil {
		return m.listFn(req)
	}
	return result.Assemble(0, nil), nil
}

type mockProviders struct {
	specs []provider.Spec
}

func (m *mockProviders) Specs() []provider.Spec { return m.specs }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestServer(t *testing.T, ms *mockSearcher) *Server {
	t.Helper()
	return NewServer(ms, &mockProviders{specs: provider.DefaultSpecs()}, &mockHealth{
		report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK}},
	}, Limits{}, zap.NewNop())
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func twoHits() []result.RawHit {
	return []result.RawHit{
		result.NewHit(paper.New("2101.1", "A. Author", "Graph Networks", "abs", "2021", []string{"cs.LG", "stat.ML"}), 0.25),
		result.NewHit(paper.New("2101.2", "B. Author", "Graph Attention", "", "2021", []string{"cs.LG"}), 0.5),
	}
}

func serveRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
