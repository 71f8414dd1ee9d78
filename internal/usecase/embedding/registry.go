package embedding

import (
	"fmt"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

// Backend binds a provider spec to the embedder serving it.
// A nil Embedder means the provider only has stored vectors: by-paper queries
// work, free-text queries are rejected.
type Backend struct {
	Spec     provider.Spec
	Embedder domain.Embedder
}

// Registry is the static provider table built once at startup.
type Registry struct {
	backends map[provider.ID]Backend
	order    []provider.ID
}

// NewRegistry builds a registry. Duplicate provider ids are rejected.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[provider.ID]Backend, len(backends))}
	for _, b := range backends {
		id := b.Spec.ID()
		if id == "" {
			return nil, fmt.Errorf("registry: backend without provider spec")
		}
		if _, dup := r.backends[id]; dup {
			return nil, fmt.Errorf("registry: provider %s registered twice", id)
		}
		r.backends[id] = b
		r.order = append(r.order, id)
	}
	return r, nil
}

// Lookup returns the backend for id. Unknown ids are a validation error.
func (r *Registry) Lookup(id provider.ID) (Backend, error) {
	b, ok := r.backends[id]
	if !ok {
		return Backend{}, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, id)
	}
	return b, nil
}

// Specs returns provider specs in registration order.
func (r *Registry) Specs() []provider.Spec {
	specs := make([]provider.Spec, 0, len(r.order))
	for _, id := range r.order {
		specs = append(specs, r.backends[id].Spec)
	}
	return specs
}

// HealthCheckers returns the embedders that can report their own health, by provider.
func (r *Registry) HealthCheckers() map[provider.ID]domain.HealthChecker {
	out := make(map[provider.ID]domain.HealthChecker)
	for _, id := range r.order {
		if hc, ok := r.backends[id].Embedder.(domain.HealthChecker); ok {
			out[id] = hc
		}
	}
	return out
}
