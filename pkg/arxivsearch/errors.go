package arxivsearch

import "github.com/kailas-cloud/arxivsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation = domain.ErrValidation
	ErrNotFound   = domain.ErrNotFound
	ErrProvider   = domain.ErrProvider
	ErrIndex      = domain.ErrIndex
)
