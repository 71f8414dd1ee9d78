// Package plan holds the logical query descriptors handed to index adapters.
// Adapters translate them into FT.SEARCH or Milvus expressions.
package plan

import (
	"slices"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
)

// Count asks for the number of papers matching a filter. No fields, no ranking.
type Count struct {
	filter filter.Expression
}

// CountOf plans a cardinality query.
func CountOf(f filter.Expression) Count { return Count{filter: f} }

// Filter returns the filter to count under.
func (c Count) Filter() filter.Expression { return c.filter }

// Listing asks for a non-ranked page of papers.
type Listing struct {
	filter filter.Expression
	offset int
	limit  int
}

// ListingOf plans a paginated listing.
func ListingOf(f filter.Expression, offset, limit int) Listing {
	return Listing{filter: f, offset: offset, limit: limit}
}

// Filter returns the listing filter.
func (l Listing) Filter() filter.Expression { return l.filter }

// Offset returns how many papers to skip.
func (l Listing) Offset() int { return l.offset }

// Limit returns the page size.
func (l Listing) Limit() int { return l.limit }

// Similarity asks for the k nearest papers to a vector under a filter.
type Similarity struct {
	filter       filter.Expression
	vector       []float32
	provider     provider.Spec
	k            int
	returnFields []string
}

// SimilarityOf plans a KNN query against the vector field owned by spec.
// k is carried as given. Empty returnFields selects DefaultReturnFields.
func SimilarityOf(
	f filter.Expression,
	vector []float32,
	spec provider.Spec,
	k int,
	returnFields []string,
) Similarity {
	if len(returnFields) == 0 {
		returnFields = domain.DefaultReturnFields()
	}
	return Similarity{
		filter:       f,
		vector:       slices.Clone(vector),
		provider:     spec,
		k:            k,
		returnFields: slices.Clone(returnFields),
	}
}

// Filter returns the pre-filter.
func (s Similarity) Filter() filter.Expression { return s.filter }

// Vector returns the query vector.
func (s Similarity) Vector() []float32 { return slices.Clone(s.vector) }

// Provider returns the provider whose vector field is searched.
func (s Similarity) Provider() provider.Spec { return s.provider }

// VectorField returns the index field searched.
func (s Similarity) VectorField() string { return s.provider.VectorField() }

// K returns the number of neighbours requested.
func (s Similarity) K() int { return s.k }

// ReturnFields returns the fields to project.
func (s Similarity) ReturnFields() []string { return slices.Clone(s.returnFields) }
