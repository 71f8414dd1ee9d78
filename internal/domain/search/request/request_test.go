package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
)

func TestNewByReference(t *testing.T) {
	f := FilterInputs{Years: []string{"2020"}}
	s, err := NewByReference(" 2101.00001 ", provider.HuggingFace, f, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Source() != SourceReference {
		t.Errorf("Source() = %v", s.Source())
	}
	if s.PaperID() != "2101.00001" {
		t.Errorf("PaperID() = %q", s.PaperID())
	}
	if s.K() != 15 {
		t.Errorf("K() = %d", s.K())
	}
	if s.Provider() != provider.HuggingFace {
		t.Errorf("Provider() = %q", s.Provider())
	}
}

func TestNewByText(t *testing.T) {
	s, err := NewByText("graph neural networks", provider.OpenAI, FilterInputs{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Source() != SourceText || s.Text() != "graph neural networks" {
		t.Errorf("unexpected request: %+v", s)
	}
}

func TestSimilarity_Validation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"zero k", func() error {
			_, err := NewByReference("id", provider.HuggingFace, FilterInputs{}, 0)
			return err
		}},
		{"negative k", func() error {
			_, err := NewByText("x", provider.HuggingFace, FilterInputs{}, -1)
			return err
		}},
		{"empty paper id", func() error {
			_, err := NewByReference("  ", provider.HuggingFace, FilterInputs{}, 1)
			return err
		}},
		{"empty text", func() error {
			_, err := NewByText(" \n", provider.HuggingFace, FilterInputs{}, 1)
			return err
		}},
		{"text too long", func() error {
			_, err := NewByText(strings.Repeat("a", MaxTextLength+1), provider.HuggingFace, FilterInputs{}, 1)
			return err
		}},
		{"missing provider", func() error {
			_, err := NewByText("x", "", FilterInputs{}, 1)
			return err
		}},
		{"bad operator", func() error {
			_, err := NewByText("x", provider.HuggingFace, FilterInputs{Operator: "XOR"}, 1)
			return err
		}},
		{"reserved characters", func() error {
			_, err := NewByText("x", provider.HuggingFace, FilterInputs{Categories: []string{"cs}"}}, 1)
			return err
		}},
		{"trailing backslash", func() error {
			_, err := NewByText("x", provider.HuggingFace, FilterInputs{Years: []string{`2021\`}}, 1)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestFilterInputs_TooManyValues(t *testing.T) {
	years := make([]string, MaxFilterValues+1)
	for i := range years {
		years[i] = "2020"
	}
	if err := (FilterInputs{Years: years}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFilterInputs_ValidOperators(t *testing.T) {
	for _, op := range []filter.CategoriesOperator{"", filter.CategoriesAny, filter.CategoriesAll} {
		if err := (FilterInputs{Operator: op}).Validate(); err != nil {
			t.Errorf("operator %q: unexpected error %v", op, err)
		}
	}
}

func TestNewListing(t *testing.T) {
	l, err := NewListing(FilterInputs{Categories: []string{"cs.LG"}}, 40, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Offset() != 40 || l.Limit() != 20 {
		t.Errorf("got offset=%d limit=%d", l.Offset(), l.Limit())
	}

	if _, err := NewListing(FilterInputs{}, -1, 20); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative skip: expected ErrValidation, got %v", err)
	}
	if _, err := NewListing(FilterInputs{}, 0, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("zero limit: expected ErrValidation, got %v", err)
	}
}
