package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendRedis  = "redis"
	BackendMilvus = "milvus"
)

// Embedding provider kinds.
const (
	KindOpenAI    = "openai"
	KindTEI       = "tei"
	KindBedrock   = "bedrock"
	KindLangChain = "langchain"
)

// Config holds the arxivsearch configuration.
type Config struct {
	HTTP           HTTPConfig                `yaml:"http"`
	Index          IndexConfig               `yaml:"index"`
	Providers      map[string]ProviderConfig `yaml:"providers"`
	Search         SearchConfig              `yaml:"search"`
	EmbeddingCache EmbeddingCacheConfig      `yaml:"embedding_cache"`
	Auth           AuthConfig                `yaml:"auth"`
	Logging        LoggingConfig             `yaml:"logging"`
	Loader         LoaderConfig              `yaml:"loader"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port               int      `yaml:"port"`
	ReadTimeoutSec     int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int      `yaml:"write_timeout_sec"`
	ShutdownSec        int      `yaml:"shutdown_timeout_sec"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// IndexConfig selects and configures the document index.
type IndexConfig struct {
	Backend          string       `yaml:"backend"` // redis, milvus (default: redis)
	Name             string       `yaml:"name"`
	KeyPrefix        string       `yaml:"key_prefix"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	Redis            RedisConfig  `yaml:"redis"`
	Milvus           MilvusConfig `yaml:"milvus"`
	ReturnFields     []string     `yaml:"return_fields"`
}

// RedisConfig holds Redis Stack / Valkey connection settings.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Valkey   bool     `yaml:"valkey"` // valkey-search lacks count-only queries on "*"
}

// MilvusConfig holds Milvus connection settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	EF         int    `yaml:"ef"`
}

// ProviderConfig describes one embedding provider.
type ProviderConfig struct {
	Kind        string `yaml:"kind"` // openai, tei, bedrock, langchain
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	VectorField string `yaml:"vector_field"` // defaults to the provider id
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	InputType   string `yaml:"input_type"`
	Instruction string `yaml:"query_instruction"`
}

// SearchConfig holds request defaults and bounds.
type SearchConfig struct {
	DefaultK               int    `yaml:"default_k"`
	MaxK                   int    `yaml:"max_k"`
	DefaultLimit           int    `yaml:"default_limit"`
	MaxLimit               int    `yaml:"max_limit"`
	CategoriesOperator     string `yaml:"categories_operator"`
	CutCategoryDescription bool   `yaml:"cut_category_description"`
}

// EmbeddingCacheConfig holds query embedding cache settings.
type EmbeddingCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// LoaderConfig holds dataset ingestion settings.
type LoaderConfig struct {
	DatasetPath      string   `yaml:"dataset_path"`
	S3               S3Config `yaml:"s3"`
	WriteConcurrency int      `yaml:"write_concurrency"`
	BatchSize        int      `yaml:"batch_size"`
	RecreateIndex    bool     `yaml:"recreate_index"`
}

// S3Config locates the dataset object used when the local file is absent.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.HTTP.CORSAllowedOrigins) == 0 {
		c.HTTP.CORSAllowedOrigins = []string{"*"}
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendRedis
	}
	if c.Index.Name == "" {
		c.Index.Name = "papers"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "paper:"
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.Milvus.Collection == "" {
		c.Index.Milvus.Collection = c.Index.Name
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 15
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 100
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.CategoriesOperator == "" {
		c.Search.CategoriesOperator = "OR"
	}
	if c.EmbeddingCache.TTLSec <= 0 {
		c.EmbeddingCache.TTLSec = 86400
	}
	if c.Loader.DatasetPath == "" {
		c.Loader.DatasetPath = "data/arxiv_embeddings_10000.json"
	}
	if c.Loader.WriteConcurrency <= 0 {
		c.Loader.WriteConcurrency = 150
	}
	if c.Loader.BatchSize <= 0 {
		c.Loader.BatchSize = 100
	}
	for id, p := range c.Providers {
		if p.VectorField == "" {
			p.VectorField = id
			c.Providers[id] = p
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Backend {
	case BackendRedis:
		if len(c.Index.Redis.Addrs) == 0 {
			return fmt.Errorf("index.redis.addrs is required")
		}
	case BackendMilvus:
		if c.Index.Milvus.Address == "" {
			return fmt.Errorf("index.milvus.address is required")
		}
	default:
		return fmt.Errorf("index.backend must be \"redis\" or \"milvus\", got %q", c.Index.Backend)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for id, p := range c.Providers {
		switch p.Kind {
		case KindOpenAI, KindTEI, KindBedrock, KindLangChain:
			// ok
		default:
			return fmt.Errorf(
				"providers.%s.kind must be one of openai, tei, bedrock, langchain, got %q",
				id, p.Kind,
			)
		}
		if p.Dimensions <= 0 {
			return fmt.Errorf("providers.%s.dimensions must be positive, got %d", id, p.Dimensions)
		}
		if p.Kind == KindTEI && p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url is required for kind tei", id)
		}
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	switch strings.ToUpper(c.Search.CategoriesOperator) {
	case "OR", "AND":
		// ok
	default:
		return fmt.Errorf("search.categories_operator must be \"OR\" or \"AND\", got %q", c.Search.CategoriesOperator)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
