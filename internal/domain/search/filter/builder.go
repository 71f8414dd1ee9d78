package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

// CategoriesOperator selects how several requested categories combine.
type CategoriesOperator string

const (
	// CategoriesAny matches papers in at least one of the categories.
	CategoriesAny CategoriesOperator = "OR"
	// CategoriesAll matches papers tagged with every category.
	CategoriesAll CategoriesOperator = "AND"
)

// ParseCategoriesOperator accepts OR/AND in any case; empty means OR.
func ParseCategoriesOperator(raw string) (CategoriesOperator, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(CategoriesAny):
		return CategoriesAny, nil
	case string(CategoriesAll):
		return CategoriesAll, nil
	default:
		return "", fmt.Errorf("%w: categories_operator must be OR or AND, got %q", domain.ErrValidation, raw)
	}
}

type buildOptions struct {
	operator   CategoriesOperator
	normalizer func(string) string
}

// BuildOption tunes Build.
type BuildOption func(*buildOptions)

// WithCategoriesOperator switches between OR (default) and AND across categories.
func WithCategoriesOperator(op CategoriesOperator) BuildOption {
	return func(o *buildOptions) {
		if op != "" {
			o.operator = op
		}
	}
}

// WithCategoryNormalizer rewrites every category before it enters the filter.
func WithCategoryNormalizer(fn func(string) string) BuildOption {
	return func(o *buildOptions) { o.normalizer = fn }
}

// CutCategoryDescription keeps the first whitespace-delimited token of a category,
// turning "q-fin.TR (Trading and Market Microstructure)" into "q-fin.TR".
func CutCategoryDescription(category string) string {
	fields := strings.Fields(category)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Build turns raw year and category lists into a filter expression.
// Blank entries are dropped; empty lists place no constraint.
func Build(years, categories []string, opts ...BuildOption) Expression {
	o := buildOptions{operator: CategoriesAny}
	for _, opt := range opts {
		opt(&o)
	}

	if o.normalizer != nil {
		normalized := make([]string, len(categories))
		for i, c := range categories {
			normalized[i] = o.normalizer(c)
		}
		categories = normalized
	}

	yearExpr := TagEquals(domain.FieldYear, years...)

	var catExpr Expression
	if o.operator == CategoriesAll {
		for _, c := range normalizeValues(categories) {
			catExpr = And(catExpr, TagEquals(domain.FieldCategories, c))
		}
	} else {
		catExpr = TagEquals(domain.FieldCategories, categories...)
	}

	return And(yearExpr, catExpr)
}
