package domain

// Corpus layout shared by the loader, the index adapters and the HTTP boundary.
const (
	// IndexName is the default search index over paper hashes.
	IndexName = "papers"
	// KeyPrefix prefixes every paper hash key: paper:<paper_id>.
	KeyPrefix = "paper:"
	// TagSeparator joins multi-valued tag fields inside a hash.
	TagSeparator = "|"

	FieldPaperID    = "paper_id"
	FieldAuthors    = "authors"
	FieldTitle      = "title"
	FieldAbstract   = "abstract"
	FieldYear       = "year"
	FieldCategories = "categories"

	// FieldDistance is the alias the adapters expose the vector distance under.
	FieldDistance = "vector_distance"
)

// DefaultReturnFields lists the paper fields returned by similarity queries.
func DefaultReturnFields() []string {
	return []string{
		FieldPaperID,
		FieldAuthors,
		FieldCategories,
		FieldYear,
		FieldTitle,
		FieldDistance,
	}
}
