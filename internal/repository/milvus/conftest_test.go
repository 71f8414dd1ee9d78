package milvus

import (
	"context"
	"testing"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

type searchCall struct {
	expr         string
	outputFields []string
	vectorField  string
	metric       milvusentity.MetricType
	topK         int
}

type queryCall struct {
	expr         string
	outputFields []string
	opts         int
}

// mockClient implements the consumer interface for tests.
type mockClient struct {
	searchFn        func(call searchCall) ([]milvusclient.SearchResult, error)
	queryFn         func(call queryCall) (milvusclient.ResultSet, error)
	hasCollectionFn func(name string) (bool, error)
	flushFn         func(name string) error
	progressFn      func(name string) (int64, error)

	searches []searchCall
	queries  []queryCall
	calls    []string
}

func (m *mockClient) Search(
	_ context.Context, _ string, _ []string,
	expr string, outputFields []string, _ []milvusentity.Vector,
	vectorField string, metricType milvusentity.MetricType, topK int,
	_ milvusentity.SearchParam, _ ...milvusclient.SearchQueryOptionFunc,
) ([]milvusclient.SearchResult, error) {
	call := searchCall{expr: expr, outputFields: outputFields, vectorField: vectorField, metric: metricType, topK: topK}
	m.searches = append(m.searches, call)
	if m.searchFn != nil {
		return m.searchFn(call)
	}
	return nil, nil
}

func (m *mockClient) Query(
	_ context.Context, _ string, _ []string,
	expr string, outputFields []string, opts ...milvusclient.SearchQueryOptionFunc,
) (milvusclient.ResultSet, error) {
	call := queryCall{expr: expr, outputFields: outputFields, opts: len(opts)}
	m.queries = append(m.queries, call)
	if m.queryFn != nil {
		return m.queryFn(call)
	}
	return nil, nil
}

func (m *mockClient) HasCollection(_ context.Context, name string) (bool, error) {
	if m.hasCollectionFn != nil {
		return m.hasCollectionFn(name)
	}
	return true, nil
}

func (m *mockClient) DropCollection(_ context.Context, _ string, _ ...milvusclient.DropCollectionOption) error {
	m.calls = append(m.calls, "drop")
	return nil
}

func (m *mockClient) CreateCollection(
	_ context.Context, _ *milvusentity.Schema, _ int32, _ ...milvusclient.CreateCollectionOption,
) error {
	m.calls = append(m.calls, "create")
	return nil
}

func (m *mockClient) CreateIndex(
	_ context.Context, _, fieldName string, _ milvusentity.Index, _ bool, _ ...milvusclient.IndexOption,
) error {
	m.calls = append(m.calls, "index "+fieldName)
	return nil
}

func (m *mockClient) LoadCollection(_ context.Context, _ string, _ bool, _ ...milvusclient.LoadCollectionOption) error {
	m.calls = append(m.calls, "load")
	return nil
}

func (m *mockClient) Insert(
	_ context.Context, _, _ string, columns ...milvusentity.Column,
) (milvusentity.Column, error) {
	m.calls = append(m.calls, "insert")
	return nil, nil
}

func (m *mockClient) Flush(_ context.Context, name string, _ bool, _ ...milvusclient.FlushOption) error {
	m.calls = append(m.calls, "flush")
	if m.flushFn != nil {
		return m.flushFn(name)
	}
	return nil
}

func (m *mockClient) GetLoadingProgress(_ context.Context, name string, _ []string) (int64, error) {
	m.calls = append(m.calls, "progress")
	if m.progressFn != nil {
		return m.progressFn(name)
	}
	return 100, nil
}

func newTestRepo(t *testing.T, cfg Config) (*Repo, *mockClient) {
	t.Helper()
	mc := &mockClient{}
	return New(mc, cfg), mc
}

func cohereSpec(t *testing.T) provider.Spec {
	t.Helper()
	s, err := provider.NewSpec(provider.Cohere, "", 2, "embed-multilingual-v3.0")
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	return s
}
