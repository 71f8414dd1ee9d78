package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e, err := NewEmbedder(&Config{BaseURL: srv.URL + "/v1", Model: "bge-base-en", Logger: zap.NewNop()})
	require.NoError(t, err)
	return e
}

func TestEmbed(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-base-en", req.Model)
		assert.Equal(t, []string{"graph neural networks"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.25],"index":0}],"usage":{"prompt_tokens":3,"total_tokens":3}}`))
	})

	res, err := e.Embed(context.Background(), "graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, res.Embedding)
	assert.Equal(t, 3, res.TotalTokens)
}

func TestEmbed_Empty(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestEmbed_ServerError(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"input too long"}}`))
	})

	_, err := e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.ErrorIs(t, e.HealthCheck(context.Background()), domain.ErrProvider)
}

func TestNewEmbedder_RequiresBaseURL(t *testing.T) {
	_, err := NewEmbedder(&Config{Model: "m"})
	assert.Error(t, err)
}
