package arxivsearch

// Query parameterizes ByPaper and ByText.
type Query struct {
	// Provider selects the vector space; empty means huggingface.
	Provider   string
	Years      []string
	Categories []string
	// MatchAllCategories requires every category instead of any.
	MatchAllCategories bool
	// K is the number of neighbours; zero means 15.
	K int
}

// Page parameterizes List.
type Page struct {
	Years              []string
	Categories         []string
	MatchAllCategories bool
	Offset             int
	// Limit is the page size; zero means 20.
	Limit int
}

// Paper is one hit. Distance and Score are set only for similarity queries.
type Paper struct {
	ID         string
	Authors    string
	Title      string
	Abstract   string
	Year       string
	Categories []string
	Distance   float64
	Score      float64
	Scored     bool
}

// Response is a page of papers and the number of papers matching the filters.
type Response struct {
	Total  int
	Papers []Paper
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID          string
	VectorField string
	Dimensions  int
	Model       string
}
