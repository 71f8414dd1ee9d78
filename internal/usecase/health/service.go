package health

import (
	"context"

	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an embedding provider is failing; by-paper search still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the index is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkIndex = "index"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexPinger
	embeddings map[provider.ID]EmbeddingChecker
}

// New creates a Service. embeddings can be nil.
func New(index IndexPinger, embeddings map[provider.ID]EmbeddingChecker) *Service {
	return &Service{index: index, embeddings: embeddings}
}

// Check runs health checks against the index and every embedding provider.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.embeddings)+1)
	status := Healthy

	if err := s.index.Ping(ctx); err != nil {
		checks[checkIndex] = CheckError
		status = Unhealthy
	} else {
		checks[checkIndex] = CheckOK
	}

	for id, hc := range s.embeddings {
		name := "embedding:" + string(id)
		if err := hc.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
