package provider

import (
	"fmt"
	"strings"
)

// ID identifies an embedding provider and, through its Spec, the vector field it owns.
type ID string

// Providers the corpus ships vectors for.
const (
	HuggingFace ID = "huggingface"
	OpenAI      ID = "openai"
	Cohere      ID = "cohere"
)

// Default is used when a request does not name a provider.
const Default = HuggingFace

// ParseID normalizes a raw provider identifier. It does not check registration.
func ParseID(raw string) (ID, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("provider is required")
	}
	for _, r := range s {
		isAlpha := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return "", fmt.Errorf("invalid provider %q", raw)
		}
	}
	return ID(s), nil
}

// Spec describes the vector field a provider owns in the index.
type Spec struct {
	id          ID
	vectorField string
	dimensions  int
	model       string
}

// NewSpec validates and creates a provider spec. An empty vectorField defaults to the id.
func NewSpec(id ID, vectorField string, dimensions int, model string) (Spec, error) {
	if id == "" {
		return Spec{}, fmt.Errorf("provider id is required")
	}
	if dimensions <= 0 {
		return Spec{}, fmt.Errorf("provider %s: dimensions must be positive, got %d", id, dimensions)
	}
	if vectorField == "" {
		vectorField = string(id)
	}
	return Spec{id: id, vectorField: vectorField, dimensions: dimensions, model: model}, nil
}

// ID returns the provider identifier.
func (s Spec) ID() ID { return s.id }

// VectorField returns the index field holding this provider's vectors.
func (s Spec) VectorField() string { return s.vectorField }

// Dimensions returns the fixed vector length.
func (s Spec) Dimensions() int { return s.dimensions }

// Model returns the embedding model name.
func (s Spec) Model() string { return s.model }

// DefaultSpecs returns the specs of the vectors bundled with the arXiv dataset.
func DefaultSpecs() []Spec {
	return []Spec{
		{id: HuggingFace, vectorField: string(HuggingFace), dimensions: 768,
			model: "sentence-transformers/all-mpnet-base-v2"},
		{id: OpenAI, vectorField: string(OpenAI), dimensions: 1536, model: "text-embedding-ada-002"},
		{id: Cohere, vectorField: string(Cohere), dimensions: 1024, model: "embed-multilingual-v3.0"},
	}
}
