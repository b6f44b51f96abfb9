// Package ranking merges the ISF and ISP rankings into a single consensus
// order (IL ranking).
//
// The merge consumes rankings, not blended scores. Each round takes the
// current leader of both lists among the remaining places. A shared leader is
// emitted once. Otherwise both leaders are emitted, the one whose own score is
// higher going first. The comparison crosses metrics on purpose: the signal
// that is more confident about its leader wins the round.
package ranking

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/placerank/internal/domain/matrix"
	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/scoring"
)

// Entry is one row of the merged ranking.
type Entry struct {
	Rank     int
	PlaceKey string
	ISF      float64
	ISP      float64
}

// Merge interleaves isf and isp. known reports whether a key resolves to a
// place; a nil known accepts every key. A round whose leader does not resolve
// drops both candidates.
func Merge(isf, isp []scoring.Result, known func(string) bool) []string {
	if known == nil {
		known = func(string) bool { return true }
	}

	isfScore := lookup(isf)
	ispScore := lookup(isp)

	order := make([]string, 0, len(isf)+len(isp))
	remaining := mapset.NewThreadUnsafeSetWithSize[string](len(isf) + len(isp))
	for _, list := range [][]scoring.Result{isf, isp} {
		for _, r := range list {
			if remaining.Add(r.PlaceKey) {
				order = append(order, r.PlaceKey)
			}
		}
	}

	out := make([]string, 0, len(order))
	for remaining.Cardinality() > 0 {
		topISF := leader(isf, order, remaining)
		topISP := leader(isp, order, remaining)
		remaining.RemoveAll(topISF, topISP)

		if !known(topISF) || !known(topISP) {
			continue
		}

		switch {
		case topISF == topISP:
			out = append(out, topISF)
		case score(isfScore, topISF) >= score(ispScore, topISP):
			out = append(out, topISF, topISP)
		default:
			out = append(out, topISP, topISF)
		}
	}
	return out
}

// IL computes the full IL ranking for the given snapshot.
func IL(users []model.User, places []model.Place, events []model.Event) []Entry {
	m := matrix.Build(users, places, events)
	return FromMatrix(m)
}

// FromMatrix computes the IL ranking from a prebuilt interaction matrix.
func FromMatrix(m *matrix.Interactions) []Entry {
	if m.Empty() {
		return []Entry{}
	}
	isf := scoring.ISF{}.Score(m)
	isp := scoring.ISP{}.Score(m)

	merged := Merge(isf, isp, func(key string) bool {
		return m.Places.Position(key) != matrix.NotFound
	})

	isfScore := lookup(isf)
	ispScore := lookup(isp)
	out := make([]Entry, len(merged))
	for i, key := range merged {
		out[i] = Entry{
			Rank:     i + 1,
			PlaceKey: key,
			ISF:      isfScore[key],
			ISP:      ispScore[key],
		}
	}
	return out
}

// Keys returns the place keys of entries in order.
func Keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PlaceKey
	}
	return out
}

// leader returns the remaining place with the highest score in list. Lists
// are sorted, so the first remaining entry wins and ties keep list order.
// Places absent from list score -Inf and are taken in order.
func leader(list []scoring.Result, order []string, remaining mapset.Set[string]) string {
	for _, r := range list {
		if remaining.ContainsOne(r.PlaceKey) {
			return r.PlaceKey
		}
	}
	for _, key := range order {
		if remaining.ContainsOne(key) {
			return key
		}
	}
	return ""
}

func lookup(list []scoring.Result) map[string]float64 {
	out := make(map[string]float64, len(list))
	for _, r := range list {
		if _, ok := out[r.PlaceKey]; !ok {
			out[r.PlaceKey] = r.Score
		}
	}
	return out
}

func score(scores map[string]float64, key string) float64 {
	if s, ok := scores[key]; ok {
		return s
	}
	return math.Inf(-1)
}
