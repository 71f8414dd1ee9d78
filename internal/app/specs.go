// Package app assembles the index, embedders and services from configuration.
// Both the API server and the loader CLI are composed here.
package app

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

// ProviderSpecs builds provider specs ordered by id.
func ProviderSpecs(providers map[string]config.ProviderConfig) ([]provider.Spec, error) {
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	specs := make([]provider.Spec, 0, len(ids))
	for _, raw := range ids {
		pc := providers[raw]
		id, err := provider.ParseID(raw)
		if err != nil {
			return nil, fmt.Errorf("providers.%s: %w", raw, err)
		}
		spec, err := provider.NewSpec(id, pc.VectorField, pc.Dimensions, pc.Model)
		if err != nil {
			return nil, fmt.Errorf("providers.%s: %w", raw, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
