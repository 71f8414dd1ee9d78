package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Index: IndexConfig{
			Backend: BackendRedis,
			Redis:   RedisConfig{Addrs: []string{"localhost:6379"}},
		},
		Providers: map[string]ProviderConfig{
			"openai": {Kind: KindOpenAI, Model: "text-embedding-ada-002", Dimensions: 1536},
		},
		Search: SearchConfig{DefaultK: 15, MaxK: 100, DefaultLimit: 20, MaxLimit: 100, CategoriesOperator: "OR"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidProviderKind(t *testing.T) {
	cfg := validConfig()
	cfg.Providers["cohere"] = ProviderConfig{Kind: "vertex", Dimensions: 1024}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid provider kind")
	}

	expected := `providers.cohere.kind must be one of openai, tei, bedrock, langchain, got "vertex"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidProviderKinds(t *testing.T) {
	for _, kind := range []string{KindOpenAI, KindTEI, KindBedrock, KindLangChain} {
		t.Run("kind="+kind, func(t *testing.T) {
			cfg := validConfig()
			cfg.Providers["p"] = ProviderConfig{Kind: kind, Dimensions: 8, BaseURL: "http://tei:8080/v1"}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for kind %q: %v", kind, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port must be between 1 and 65535, got 0"},
		{"redis addrs", func(c *Config) { c.Index.Redis.Addrs = nil }, "index.redis.addrs is required"},
		{"milvus address", func(c *Config) { c.Index.Backend = BackendMilvus }, "index.milvus.address is required"},
		{"backend", func(c *Config) { c.Index.Backend = "qdrant" },
			`index.backend must be "redis" or "milvus", got "qdrant"`},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one provider is required"},
		{"dimensions", func(c *Config) {
			c.Providers["openai"] = ProviderConfig{Kind: KindOpenAI}
		}, "providers.openai.dimensions must be positive, got 0"},
		{"tei base url", func(c *Config) {
			c.Providers["huggingface"] = ProviderConfig{Kind: KindTEI, Dimensions: 768}
		}, "providers.huggingface.base_url is required for kind tei"},
		{"k bounds", func(c *Config) { c.Search.DefaultK = 200 }, "search.default_k (200) exceeds search.max_k (100)"},
		{"operator", func(c *Config) { c.Search.CategoriesOperator = "XOR" },
			`search.categories_operator must be "OR" or "AND", got "XOR"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderConfig{"cohere": {Kind: KindBedrock}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 1 || cfg.HTTP.CORSAllowedOrigins[0] != "*" {
		t.Errorf("expected CORS to allow all origins, got %v", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.Index.Backend != BackendRedis {
		t.Errorf("expected Backend=redis, got %q", cfg.Index.Backend)
	}
	if cfg.Index.Name != "papers" || cfg.Index.KeyPrefix != "paper:" {
		t.Errorf("unexpected index naming: %q %q", cfg.Index.Name, cfg.Index.KeyPrefix)
	}
	if cfg.Index.Milvus.Collection != "papers" {
		t.Errorf("expected milvus collection to follow index name, got %q", cfg.Index.Milvus.Collection)
	}
	if cfg.Search.DefaultK != 15 || cfg.Search.MaxK != 100 {
		t.Errorf("unexpected k bounds: %d/%d", cfg.Search.DefaultK, cfg.Search.MaxK)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 100 {
		t.Errorf("unexpected limit bounds: %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Search.CategoriesOperator != "OR" {
		t.Errorf("expected OR, got %q", cfg.Search.CategoriesOperator)
	}
	if cfg.Loader.WriteConcurrency != 150 {
		t.Errorf("expected WriteConcurrency=150, got %d", cfg.Loader.WriteConcurrency)
	}
	if cfg.Providers["cohere"].VectorField != "cohere" {
		t.Errorf("expected vector field to default to the provider id, got %q", cfg.Providers["cohere"].VectorField)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:  IndexConfig{Backend: BackendMilvus, Name: "arxiv", KeyPrefix: "doc:"},
		Search: SearchConfig{DefaultK: 5, MaxK: 50},
		Loader: LoaderConfig{WriteConcurrency: 8, BatchSize: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.Backend != BackendMilvus || cfg.Index.KeyPrefix != "doc:" {
		t.Errorf("index settings overridden: %+v", cfg.Index)
	}
	if cfg.Search.DefaultK != 5 || cfg.Search.MaxK != 50 {
		t.Errorf("search settings overridden: %+v", cfg.Search)
	}
	if cfg.Loader.WriteConcurrency != 8 || cfg.Loader.BatchSize != 10 {
		t.Errorf("loader settings overridden: %+v", cfg.Loader)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ARXIV_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${ARXIV_TEST_ADDR}\nb: ${ARXIV_TEST_UNSET:-fallback}\nc: ${ARXIV_TEST_UNSET}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: ${ARXIV_TEST_PORT:-9090}
index:
  redis:
    addrs: ["localhost:6379"]
providers:
  huggingface:
    kind: tei
    model: sentence-transformers/all-mpnet-base-v2
    dimensions: 768
    base_url: http://tei:8080/v1
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Providers["huggingface"].Dimensions != 768 {
		t.Errorf("unexpected provider: %+v", cfg.Providers["huggingface"])
	}
	if cfg.Search.DefaultK != 15 {
		t.Error("defaults must be applied after loading")
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func writeUnittestConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
}

func TestLoad_WithoutHTTPSection(t *testing.T) {
	writeUnittestConfig(t, `
index:
  redis:
    addrs: ["localhost:6379"]
providers:
  openai:
    kind: openai
    dimensions: 1536
`)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("loader configs carry no http section: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	writeUnittestConfig(t, `
index:
  redis:
    addrs: ["localhost:6379"]
tracing:
  enabled: true
`)

	_, err := Load("unittest")
	if err == nil {
		t.Fatal("expected error for an unknown section")
	}
	if !strings.Contains(err.Error(), "tracing") {
		t.Errorf("error should name the unknown key, got %v", err)
	}
}

func TestLoad_ProviderCredentials(t *testing.T) {
	t.Setenv("ARXIV_TEST_SECRET", "s3cr3t")
	writeUnittestConfig(t, `
index:
  redis:
    addrs: ["localhost:6379"]
providers:
  cohere:
    kind: bedrock
    model: cohere.embed-multilingual-v3
    dimensions: 1024
    access_key: AKID
    secret_key: ${ARXIV_TEST_SECRET}
`)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	pc := cfg.Providers["cohere"]
	if pc.AccessKey != "AKID" || pc.SecretKey != "s3cr3t" {
		t.Errorf("unexpected credentials: %q %q", pc.AccessKey, pc.SecretKey)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	writeUnittestConfig(t, "")

	_, err := Load("unittest")
	if err == nil || !strings.Contains(err.Error(), "index.redis.addrs is required") {
		t.Fatalf("empty config must fail validation, not parsing: %v", err)
	}
}
