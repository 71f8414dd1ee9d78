package result

import "github.com/kailas-cloud/arxivsearch/internal/domain/paper"

// RawHit is a paper as returned by an index adapter, with the vector distance
// when the query was a KNN query.
type RawHit struct {
	paper    paper.Paper
	distance float64
	hasDist  bool
}

// NewHit creates a ranked hit.
func NewHit(p paper.Paper, distance float64) RawHit {
	return RawHit{paper: p, distance: distance, hasDist: true}
}

// NewPlainHit creates a hit from a listing query, without distance.
func NewPlainHit(p paper.Paper) RawHit { return RawHit{paper: p} }

// Paper returns the hit's paper.
func (h RawHit) Paper() paper.Paper { return h.paper }

// Distance returns the vector distance, if any.
func (h RawHit) Distance() (float64, bool) { return h.distance, h.hasDist }

// Result is a paper with its distance and similarity score.
// Score is only set when the distance is.
type Result struct {
	paper    paper.Paper
	distance float64
	score    float64
	scored   bool
}

// Paper returns the matched paper.
func (r Result) Paper() paper.Paper { return r.paper }

// Distance returns the vector distance, if any.
func (r Result) Distance() (float64, bool) { return r.distance, r.scored }

// Score returns 1 - distance, if a distance is present.
func (r Result) Score() (float64, bool) { return r.score, r.scored }

// Response is the assembled answer of one request.
type Response struct {
	total   int
	results []Result
}

// Total returns the number of papers matching the filter, independent of k.
func (r Response) Total() int { return r.total }

// Results returns the hits in index order.
func (r Response) Results() []Result { return r.results }

// Assemble scores hits and pairs them with the filter total.
// Ordering is preserved; nothing is re-ranked or deduplicated.
func Assemble(total int, hits []RawHit) Response {
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{paper: h.paper}
		if d, ok := h.Distance(); ok {
			results[i].distance = d
			results[i].score = Score(d)
			results[i].scored = true
		}
	}
	return Response{total: total, results: results}
}

// Score converts a cosine distance into a similarity score.
func Score(distance float64) float64 { return 1 - distance }
