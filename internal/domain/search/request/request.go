package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
)

// Request limits enforced before any I/O happens.
const (
	// MaxTextLength is the maximum allowed free-text query length.
	MaxTextLength = 4096
	// MaxFilterValues bounds the number of values per tag field.
	MaxFilterValues = 64
	// MaxFilterValueLength bounds a single tag value.
	MaxFilterValueLength = 128
)

// FilterInputs are the raw year/category lists as received at the boundary.
type FilterInputs struct {
	Years      []string
	Categories []string
	Operator   filter.CategoriesOperator
}

// Validate rejects filter inputs the index could not express.
func (f FilterInputs) Validate() error {
	if err := validateValues("years", f.Years); err != nil {
		return err
	}
	if err := validateValues("categories", f.Categories); err != nil {
		return err
	}
	switch f.Operator {
	case "", filter.CategoriesAny, filter.CategoriesAll:
		return nil
	default:
		return fmt.Errorf("%w: unknown categories operator %q", domain.ErrValidation, f.Operator)
	}
}

func validateValues(field string, values []string) error {
	if len(values) > MaxFilterValues {
		return fmt.Errorf("%w: too many %s (max %d)", domain.ErrValidation, field, MaxFilterValues)
	}
	for _, v := range values {
		if len(v) > MaxFilterValueLength {
			return fmt.Errorf("%w: %s value too long (max %d chars)", domain.ErrValidation, field, MaxFilterValueLength)
		}
		if strings.ContainsAny(v, "{}\\\x00") {
			return fmt.Errorf("%w: %s value %q contains reserved characters", domain.ErrValidation, field, v)
		}
	}
	return nil
}

// Source tells how the query vector of a similarity request is obtained.
type Source int

const (
	// SourceReference reuses the stored vector of an indexed paper.
	SourceReference Source = iota
	// SourceText embeds free text with the provider backend.
	SourceText
)

func (s Source) String() string {
	if s == SourceText {
		return "text"
	}
	return "paper"
}

// Similarity is a validated nearest-neighbour request.
type Similarity struct {
	source   Source
	paperID  string
	text     string
	provider provider.ID
	filters  FilterInputs
	k        int
}

// NewByReference validates a "papers similar to this paper" request.
func NewByReference(paperID string, p provider.ID, filters FilterInputs, k int) (Similarity, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return Similarity{}, fmt.Errorf("%w: paper_id is required", domain.ErrValidation)
	}
	s := Similarity{source: SourceReference, paperID: paperID, provider: p, filters: filters, k: k}
	if err := s.validate(); err != nil {
		return Similarity{}, err
	}
	return s, nil
}

// NewByText validates a free-text similarity request.
func NewByText(text string, p provider.ID, filters FilterInputs, k int) (Similarity, error) {
	if strings.TrimSpace(text) == "" {
		return Similarity{}, fmt.Errorf("%w: user_text is required", domain.ErrValidation)
	}
	if len(text) > MaxTextLength {
		return Similarity{}, fmt.Errorf("%w: user_text too long (max %d chars)", domain.ErrValidation, MaxTextLength)
	}
	s := Similarity{source: SourceText, text: text, provider: p, filters: filters, k: k}
	if err := s.validate(); err != nil {
		return Similarity{}, err
	}
	return s, nil
}

func (s Similarity) validate() error {
	if s.provider == "" {
		return fmt.Errorf("%w: provider is required", domain.ErrValidation)
	}
	if s.k <= 0 {
		return fmt.Errorf("%w: number_of_results must be positive, got %d", domain.ErrValidation, s.k)
	}
	return s.filters.Validate()
}

// Source returns how the query vector is obtained.
func (s Similarity) Source() Source { return s.source }

// PaperID returns the reference paper (SourceReference only).
func (s Similarity) PaperID() string { return s.paperID }

// Text returns the raw query text (SourceText only).
func (s Similarity) Text() string { return s.text }

// Provider returns the embedding provider the query targets.
func (s Similarity) Provider() provider.ID { return s.provider }

// Filters returns the raw filter inputs.
func (s Similarity) Filters() FilterInputs { return s.filters }

// K returns the requested number of neighbours.
func (s Similarity) K() int { return s.k }

// Listing is a validated filter-only paginated request.
type Listing struct {
	filters FilterInputs
	offset  int
	limit   int
}

// NewListing validates a listing request.
func NewListing(filters FilterInputs, offset, limit int) (Listing, error) {
	if offset < 0 {
		return Listing{}, fmt.Errorf("%w: skip must not be negative", domain.ErrValidation)
	}
	if limit <= 0 {
		return Listing{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrValidation, limit)
	}
	if err := filters.Validate(); err != nil {
		return Listing{}, err
	}
	return Listing{filters: filters, offset: offset, limit: limit}, nil
}

// Filters returns the raw filter inputs.
func (l Listing) Filters() FilterInputs { return l.filters }

// Offset returns the number of papers to skip.
func (l Listing) Offset() int { return l.offset }

// Limit returns the page size.
func (l Listing) Limit() int { return l.limit }
