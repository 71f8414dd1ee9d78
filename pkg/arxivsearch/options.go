package arxivsearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type providerConfig struct {
	id          string
	dimensions  int
	vectorField string
	embedder    Embedder
}

type clientConfig struct {
	valkey   bool
	addrs    []string
	password string

	indexName string
	keyPrefix string
	providers []providerConfig

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects to a Redis Stack (Redis 8+) instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.valkey = false
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey connects to a Valkey instance with the valkey-search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.valkey = true
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithIndex overrides the index name and the paper key prefix.
// Defaults: "papers" and "paper:".
func WithIndex(name, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
		c.keyPrefix = keyPrefix
	})
}

// WithProvider registers a provider whose vectors are stored in the field
// named after it. A nil embedder limits the provider to ByPaper.
// Without any WithProvider the huggingface, openai and cohere vector fields
// are registered for ByPaper only.
func WithProvider(id string, dimensions int, e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, providerConfig{id: id, dimensions: dimensions, embedder: e})
	})
}

// WithProviderField is WithProvider for a vector field not named after the provider.
func WithProviderField(id, vectorField string, dimensions int, e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, providerConfig{
			id: id, dimensions: dimensions, vectorField: vectorField, embedder: e,
		})
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (query counts, durations and result
// sizes) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
