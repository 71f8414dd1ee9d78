package paper

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
)

// Paper is an arXiv record as stored in the index. Vectors are not carried here.
type Paper struct {
	id         string
	authors    string
	title      string
	abstract   string
	year       string
	categories []string
}

// New creates a paper.
func New(id, authors, title, abstract, year string, categories []string) Paper {
	return Paper{
		id:         id,
		authors:    authors,
		title:      title,
		abstract:   abstract,
		year:       year,
		categories: slices.Clone(categories),
	}
}

// FromFields builds a paper from flat index fields (hash or column values).
func FromFields(id string, fields map[string]string) Paper {
	if v, ok := fields[domain.FieldPaperID]; ok && v != "" {
		id = v
	}
	return Paper{
		id:         id,
		authors:    fields[domain.FieldAuthors],
		title:      fields[domain.FieldTitle],
		abstract:   fields[domain.FieldAbstract],
		year:       fields[domain.FieldYear],
		categories: SplitCategories(fields[domain.FieldCategories]),
	}
}

// ID returns the arXiv identifier.
func (p Paper) ID() string { return p.id }

// Authors returns the author list as stored.
func (p Paper) Authors() string { return p.authors }

// Title returns the title.
func (p Paper) Title() string { return p.title }

// Abstract returns the abstract, empty when not projected.
func (p Paper) Abstract() string { return p.abstract }

// Year returns the publication year tag.
func (p Paper) Year() string { return p.year }

// Categories returns the category tags.
func (p Paper) Categories() []string { return slices.Clone(p.categories) }

// SplitCategories splits a stored tag value on the tag separator (or on commas, as in the
// raw dataset) and drops blanks.
func SplitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinCategories renders categories as a tag field value.
func JoinCategories(categories []string) string {
	return strings.Join(categories, domain.TagSeparator)
}

// Record is a paper together with its vectors keyed by vector field, as written by the loader.
type Record struct {
	Paper   Paper
	Vectors map[string][]float32
}
