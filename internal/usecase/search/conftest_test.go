package search

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/plan"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
)

// memIndex is an in-memory index: exact cosine KNN over papers with tag filters.
type memIndex struct {
	papers  []paper.Paper
	vectors map[string]map[string][]float32 // paper id -> vector field -> vector

	countErr  error
	searchErr error
	listErr   error

	searches   atomic.Int32
	lastSearch plan.Similarity
	lastCount  plan.Count
}

func (m *memIndex) Count(_ context.Context, q plan.Count) (int, error) {
	m.lastCount = q
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, p := range m.papers {
		if matches(q.Filter(), p) {
			n++
		}
	}
	return n, nil
}

func (m *memIndex) VectorSearch(_ context.Context, q plan.Similarity) ([]result.RawHit, error) {
	m.searches.Add(1)
	m.lastSearch = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var hits []result.RawHit
	for _, p := range m.papers {
		v, ok := m.vectors[p.ID()][q.VectorField()]
		if !ok || !matches(q.Filter(), p) {
			continue
		}
		hits = append(hits, result.NewHit(p, cosineDistance(q.Vector(), v)))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		di, _ := hits[i].Distance()
		dj, _ := hits[j].Distance()
		return di < dj
	})
	if len(hits) > q.K() {
		hits = hits[:q.K()]
	}
	return hits, nil
}

func (m *memIndex) List(_ context.Context, q plan.Listing) ([]result.RawHit, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var hits []result.RawHit
	for _, p := range m.papers {
		if matches(q.Filter(), p) {
			hits = append(hits, result.NewPlainHit(p))
		}
	}
	if q.Offset() >= len(hits) {
		return []result.RawHit{}, nil
	}
	hits = hits[q.Offset():]
	if len(hits) > q.Limit() {
		hits = hits[:q.Limit()]
	}
	return hits, nil
}

// FetchVector lets the memIndex back a real embedding.Gateway.
func (m *memIndex) FetchVector(_ context.Context, id string, spec provider.Spec) ([]float32, error) {
	fields, ok := m.vectors[id]
	if !ok {
		return nil, domain.NewPaperNotFound(id)
	}
	v, ok := fields[spec.VectorField()]
	if !ok {
		return nil, domain.NewVectorNotFound(id, string(spec.ID()))
	}
	return v, nil
}

func matches(e filter.Expression, p paper.Paper) bool {
	switch e.Kind() {
	case filter.KindTagEquals:
		var have []string
		switch e.Field() {
		case domain.FieldYear:
			have = []string{p.Year()}
		case domain.FieldCategories:
			have = p.Categories()
		}
		for _, v := range e.Values() {
			if slices.Contains(have, v) {
				return true
			}
		}
		return false
	case filter.KindAnd:
		return matches(e.Left(), p) && matches(e.Right(), p)
	case filter.KindOr:
		return matches(e.Left(), p) || matches(e.Right(), p)
	default:
		return true
	}
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

type mockEmbedder struct {
	vec      []float32
	err      error
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.lastText = text
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}
