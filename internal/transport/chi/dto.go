package chi

import (
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeProviderError    = "embedding_provider_error"
	codeIndexUnavailable = "index_unavailable"
	codeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// similarityFields are shared by both vector search bodies.
type similarityFields struct {
	Provider           string   `json:"provider" validate:"omitempty,max=64"`
	Years              []string `json:"years" validate:"max=64,dive,max=128"`
	Categories         []string `json:"categories" validate:"max=64,dive,max=128"`
	CategoriesOperator string   `json:"categories_operator" validate:"omitempty,oneof=OR AND or and"`
	NumberOfResults    *int     `json:"number_of_results" validate:"omitempty,gt=0"`
	// SearchType is accepted for compatibility; only KNN is served.
	SearchType string `json:"search_type" validate:"omitempty,oneof=KNN knn"`
}

// PaperSimilarityRequest is the body of POST /vector_search/by_paper.
type PaperSimilarityRequest struct {
	PaperID string `json:"paper_id" validate:"required,max=256"`
	similarityFields
}

// TextSimilarityRequest is the body of POST /vector_search/by_text.
type TextSimilarityRequest struct {
	UserText string `json:"user_text" validate:"required"`
	similarityFields
}

// Paper is the wire form of an indexed paper. Categories use the index separator.
type Paper struct {
	PaperID         string   `json:"paper_id"`
	Authors         string   `json:"authors"`
	Categories      string   `json:"categories"`
	Year            string   `json:"year"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	VectorDistance  *float64 `json:"vector_distance,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// SearchResponse is returned by the listing and both vector searches.
type SearchResponse struct {
	Total  int     `json:"total"`
	Papers []Paper `json:"papers"`
}

// Provider describes a registered embedding provider.
type Provider struct {
	ID          string `json:"id"`
	VectorField string `json:"vector_field"`
	Dimensions  int    `json:"dimensions"`
	Model       string `json:"model,omitempty"`
}

// ProviderListResponse is returned by GET /api/v1/providers.
type ProviderListResponse struct {
	Providers []Provider `json:"providers"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func responseToDTO(resp result.Response) SearchResponse {
	results := resp.Results()
	papers := make([]Paper, len(results))
	for i, r := range results {
		papers[i] = paperToDTO(r.Paper())
		if d, ok := r.Distance(); ok {
			score, _ := r.Score()
			papers[i].VectorDistance = &d
			papers[i].SimilarityScore = &score
		}
	}
	return SearchResponse{Total: resp.Total(), Papers: papers}
}

func paperToDTO(p paper.Paper) Paper {
	return Paper{
		PaperID:    p.ID(),
		Authors:    p.Authors(),
		Categories: paper.JoinCategories(p.Categories()),
		Year:       p.Year(),
		Title:      p.Title(),
		Abstract:   p.Abstract(),
	}
}

func providerToDTO(s provider.Spec) Provider {
	return Provider{
		ID:          string(s.ID()),
		VectorField: s.VectorField(),
		Dimensions:  s.Dimensions(),
		Model:       s.Model(),
	}
}
