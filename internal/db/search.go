package db

import "github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"

// DefaultDistanceField is the field FT.SEARCH reports KNN distances under
// when no alias is requested.
const DefaultDistanceField = "__vector_score"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName   string
	Filter      filter.Expression
	VectorField string
	Vector      []float32
	K           int
	// DistanceField aliases the KNN distance; empty means DefaultDistanceField.
	DistanceField string
	ReturnFields  []string
}

// ListQuery is the input for a filter-only paginated search.
type ListQuery struct {
	IndexName    string
	Filter       filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
}

// CountQuery is the input for a cardinality-only search.
type CountQuery struct {
	IndexName string
	Filter    filter.Expression
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hash hit from a search.
// Distance is only meaningful when HasDistance is set (KNN queries).
type SearchEntry struct {
	Key         string
	Distance    float64
	HasDistance bool
	Fields      map[string]string
}
