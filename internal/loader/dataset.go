package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

// datasetPaper holds the metadata of one dataset element. Vector fields sit next
// to it under the provider vector field name, so elements decode as raw maps.
type datasetPaper struct {
	ID         string          `json:"id"`
	PaperID    string          `json:"paper_id"`
	Authors    string          `json:"authors"`
	Title      string          `json:"title"`
	Abstract   string          `json:"abstract"`
	Categories string          `json:"categories"`
}

// Decode reads the JSON dataset array. Categories are comma separated in the
// dataset; missing provider vectors are allowed, wrong-sized ones are not.
func Decode(r io.Reader, specs []provider.Spec) ([]paper.Record, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("dataset must be a JSON array, got %v", tok)
	}

	var records []paper.Record
	for i := 0; dec.More(); i++ {
		var raw map[string]json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode paper #%d: %w", i, err)
		}
		rec, err := toRecord(raw, specs)
		if err != nil {
			return nil, fmt.Errorf("paper #%d: %w", i, err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read dataset end: %w", err)
	}
	return records, nil
}

func toRecord(raw map[string]json.RawMessage, specs []provider.Spec) (paper.Record, error) {
	var dp datasetPaper
	for field, dst := range map[string]any{
		"id":         &dp.ID,
		"paper_id":   &dp.PaperID,
		"authors":    &dp.Authors,
		"title":      &dp.Title,
		"abstract":   &dp.Abstract,
		"categories": &dp.Categories,
	} {
		if v, ok := raw[field]; ok && !isNull(v) {
			if err := json.Unmarshal(v, dst); err != nil {
				return paper.Record{}, fmt.Errorf("field %s: %w", field, err)
			}
		}
	}

	id := dp.ID
	if id == "" {
		id = dp.PaperID
	}
	if id == "" {
		return paper.Record{}, fmt.Errorf("missing id")
	}

	year, err := decodeYear(raw["year"])
	if err != nil {
		return paper.Record{}, fmt.Errorf("paper %s: %w", id, err)
	}

	vectors := make(map[string][]float32, len(specs))
	for _, s := range specs {
		v, ok := raw[s.VectorField()]
		if !ok || isNull(v) {
			continue
		}
		var vec []float32
		if err := json.Unmarshal(v, &vec); err != nil {
			return paper.Record{}, fmt.Errorf("paper %s: %s vector: %w", id, s.VectorField(), err)
		}
		if len(vec) != s.Dimensions() {
			return paper.Record{}, fmt.Errorf("paper %s: %s vector has %d dimensions, want %d",
				id, s.VectorField(), len(vec), s.Dimensions())
		}
		vectors[s.VectorField()] = vec
	}

	return paper.Record{
		Paper:   paper.New(id, dp.Authors, dp.Title, dp.Abstract, year, paper.SplitCategories(dp.Categories)),
		Vectors: vectors,
	}, nil
}

// decodeYear accepts both 2021 and "2021".
func decodeYear(v json.RawMessage) (string, error) {
	if len(v) == 0 || isNull(v) {
		return "", nil
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("year: %w", err)
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", fmt.Errorf("year: %w", err)
	}
	return n.String(), nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
