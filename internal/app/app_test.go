package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/db"
	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	embeddinguc "github.com/kailas-cloud/arxivsearch/internal/usecase/embedding"
)

type fakeEmbedder struct {
	calls    int
	lastText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	f.lastText = text
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func (f *fakeEmbedder) HealthCheck(context.Context) error { return nil }

type fakeCache struct {
	data map[string][]byte
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (c *fakeCache) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Index: config.IndexConfig{Name: "papers", KeyPrefix: "paper:"},
		Providers: map[string]config.ProviderConfig{
			"openai":      {Kind: config.KindOpenAI, Model: "text-embedding-ada-002", Dimensions: 1536, APIKey: "k"},
			"huggingface": {Kind: config.KindTEI, Model: "all-mpnet-base-v2", Dimensions: 768, BaseURL: "http://tei"},
			"cohere":      {Kind: config.KindLangChain, Model: "embed-multilingual-v3.0", Dimensions: 1024, VectorField: "cohere_vec"},
		},
		EmbeddingCache: config.EmbeddingCacheConfig{Enabled: true, TTLSec: 60},
	}
}

func TestProviderSpecs(t *testing.T) {
	specs, err := ProviderSpecs(testConfig().Providers)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, provider.Cohere, specs[0].ID())
	assert.Equal(t, "cohere_vec", specs[0].VectorField())
	assert.Equal(t, provider.HuggingFace, specs[1].ID())
	assert.Equal(t, "huggingface", specs[1].VectorField())
	assert.Equal(t, 768, specs[1].Dimensions())
	assert.Equal(t, provider.OpenAI, specs[2].ID())
}

func TestProviderSpecs_Errors(t *testing.T) {
	_, err := ProviderSpecs(map[string]config.ProviderConfig{"open ai": {Dimensions: 3}})
	require.Error(t, err)

	_, err = ProviderSpecs(map[string]config.ProviderConfig{"openai": {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestDescribeSchema_Redis(t *testing.T) {
	specs, err := ProviderSpecs(testConfig().Providers)
	require.NoError(t, err)

	out, err := DescribeSchema(config.IndexConfig{Backend: config.BackendRedis, Name: "papers", KeyPrefix: "paper:"}, specs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "FT.CREATE papers ON HASH PREFIX 1 paper:"), out)
	assert.Contains(t, out, "categories TAG SEPARATOR |")
	assert.Contains(t, out, "huggingface VECTOR FLAT")
	assert.Contains(t, out, "DIM 768")
}

func TestDescribeSchema_Milvus(t *testing.T) {
	specs, err := ProviderSpecs(testConfig().Providers)
	require.NoError(t, err)

	out, err := DescribeSchema(config.IndexConfig{
		Backend: config.BackendMilvus,
		Milvus:  config.MilvusConfig{Collection: "arxiv"},
	}, specs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "collection arxiv\n"), out)
	assert.Contains(t, out, "paper_id")
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "dim=1536")
}

func TestDescribeSchema_UnknownBackend(t *testing.T) {
	_, err := DescribeSchema(config.IndexConfig{Backend: "elastic"}, nil)
	require.Error(t, err)
}

func TestNewBaseEmbedder(t *testing.T) {
	spec, err := provider.NewSpec(provider.OpenAI, "", 3, "m")
	require.NoError(t, err)
	ctx := context.Background()

	for _, pc := range []config.ProviderConfig{
		{Kind: config.KindOpenAI, Model: "m", APIKey: "k"},
		{Kind: config.KindTEI, Model: "m", BaseURL: "http://tei"},
		{Kind: config.KindLangChain, Model: "m", BaseURL: "http://ollama/v1"},
		{Kind: config.KindBedrock, Model: "cohere.embed-multilingual-v3", Region: "us-east-1"},
	} {
		t.Run(pc.Kind, func(t *testing.T) {
			e, err := NewBaseEmbedder(ctx, spec, pc, zap.NewNop())
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}

	_, err = NewBaseEmbedder(ctx, spec, config.ProviderConfig{Kind: "grpc"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewBaseEmbedder(ctx, spec, config.ProviderConfig{Kind: config.KindTEI}, zap.NewNop())
	require.Error(t, err, "tei needs a base url")
}

func TestDecorate_CachesAndPrefixesInstruction(t *testing.T) {
	spec, err := provider.NewSpec(provider.HuggingFace, "", 3, "m")
	require.NoError(t, err)
	base := &fakeEmbedder{}
	cache := &fakeCache{data: map[string][]byte{}}
	pc := config.ProviderConfig{Model: "m", Instruction: "query: "}

	e := Decorate(base, spec, pc, cache, time.Minute, zap.NewNop())
	require.IsType(t, &domain.InstructionEmbedder{}, e)

	ctx := context.Background()
	_, err = e.Embed(ctx, "graph networks")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "graph networks")
	require.NoError(t, err)

	assert.Equal(t, 1, base.calls, "second call is served from the cache")
	assert.Equal(t, "query: graph networks", base.lastText)
	assert.Len(t, cache.data, 1)
}

func TestDecorate_NoCache(t *testing.T) {
	spec, err := provider.NewSpec(provider.HuggingFace, "", 3, "m")
	require.NoError(t, err)
	base := &fakeEmbedder{}

	e := Decorate(base, spec, config.ProviderConfig{}, nil, time.Minute, zap.NewNop())
	require.IsType(t, &embeddinguc.InstrumentedEmbedder{}, e)

	for range 2 {
		_, err = e.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, base.calls)
}

func TestBuildBackends(t *testing.T) {
	cfg := testConfig()
	specs, err := ProviderSpecs(cfg.Providers)
	require.NoError(t, err)

	backends, err := BuildBackends(context.Background(), cfg, specs, nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, backends, 3)

	registry, err := embeddinguc.NewRegistry(backends...)
	require.NoError(t, err)
	assert.Len(t, HealthCheckers(registry), 3)
}

func TestProviderConfig_CaseInsensitiveKeys(t *testing.T) {
	providers := map[string]config.ProviderConfig{"OpenAI": {Model: "m"}}
	assert.Equal(t, "m", providerConfig(providers, provider.OpenAI).Model)
	assert.Empty(t, providerConfig(providers, provider.Cohere).Model)
}

func TestBedrockConfig_Credentials(t *testing.T) {
	bc := bedrockConfig(config.ProviderConfig{
		Kind:      config.KindBedrock,
		Model:     "cohere.embed-multilingual-v3",
		Region:    "us-east-1",
		BaseURL:   "http://localhost:4566",
		AccessKey: "AKID",
		SecretKey: "SECRET",
		InputType: "search_query",
	}, zap.NewNop())

	assert.Equal(t, "AKID", bc.AccessKey)
	assert.Equal(t, "SECRET", bc.SecretKey)
	assert.Equal(t, "http://localhost:4566", bc.Endpoint)
	assert.Equal(t, "us-east-1", bc.Region)
	assert.Equal(t, "search_query", bc.InputType)
}
