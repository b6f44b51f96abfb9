// Package scoring implements the mutual-reinforcement place scorers.
//
// Both scorers alternate between projecting user scores onto places and
// place scores back onto users, normalizing after every projection. The
// number of rounds is fixed; there is no convergence check.
package scoring

import (
	"sort"

	"github.com/okian/placerank/internal/domain/matrix"
)

// Iterations is the fixed number of reinforcement rounds.
const Iterations = 3

// Result pairs a place with its score.
type Result struct {
	PlaceKey string
	Score    float64
}

// Scorer ranks the places of an interaction matrix.
type Scorer interface {
	// Name identifies the scorer in logs and metrics.
	Name() string
	// Score returns places sorted by descending score. Ties keep the
	// enumeration order of the matrix columns.
	Score(m *matrix.Interactions) []Result
}

// ISF scores places by check-in presence (frequency).
type ISF struct{}

// Name implements Scorer.
func (ISF) Name() string { return "isf" }

// Score implements Scorer.
func (ISF) Score(m *matrix.Interactions) []Result {
	if m.Empty() {
		return []Result{}
	}
	return iterate(m, nil, nil)
}

// ISP scores places with users weighted by visit breadth and places weighted
// by visitor count (preference).
type ISP struct{}

// Name implements Scorer.
func (ISP) Name() string { return "isp" }

// Score implements Scorer.
func (ISP) Score(m *matrix.Interactions) []Result {
	if m.Empty() {
		return []Result{}
	}
	return iterate(m, m.UserBreadth(), m.PlacePopularity())
}

// iterate runs the reinforcement rounds. A nil weight vector means no
// element-wise weighting on that side.
func iterate(m *matrix.Interactions, prefU, prefL []float64) []Result {
	users := make([]float64, m.Rows())
	for u := range users {
		users[u] = 1.0
	}

	var places []float64
	for i := 0; i < Iterations; i++ {
		places = Normalize(toPlaces(m, weigh(users, prefU)))
		users = Normalize(toUsers(m, weigh(places, prefL)))
	}
	return sorted(m.Places, Normalize(places))
}

// toPlaces computes usersᵗ × M.
func toPlaces(m *matrix.Interactions, users []float64) []float64 {
	out := make([]float64, m.Cols())
	for u, row := range m.Cells {
		for p, v := range row {
			out[p] += users[u] * v
		}
	}
	return out
}

// toUsers computes M × places.
func toUsers(m *matrix.Interactions, places []float64) []float64 {
	out := make([]float64, m.Rows())
	for u, row := range m.Cells {
		for p, v := range row {
			out[u] += v * places[p]
		}
	}
	return out
}

func weigh(v, w []float64) []float64 {
	if w == nil {
		return v
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * w[i]
	}
	return out
}

func sorted(places *matrix.Index, scores []float64) []Result {
	out := make([]Result, len(scores))
	for p, s := range scores {
		out[p] = Result{PlaceKey: places.Key(p), Score: s}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
