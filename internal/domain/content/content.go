// Package content implements tag-based content similarity: place-to-place
// cosine similarity and profile-to-place scoring.
package content

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	"github.com/okian/placerank/internal/domain/model"
)

// Match is a candidate place with its similarity or profile score.
type Match struct {
	PlaceKey string
	Score    float64
}

// Recommender holds binary tag vectors for a place roster. It is built once
// per call and never mutated.
type Recommender struct {
	places  []model.Place
	tags    []string
	vectors [][]float64
	byKey   map[string]int
}

// New builds tag vectors over the sorted set of distinct tags. Duplicate
// place keys keep their first occurrence.
func New(places []model.Place) *Recommender {
	universe := mapset.NewThreadUnsafeSet[string]()
	for _, p := range places {
		universe.Append(p.Tags...)
	}
	tags := universe.ToSlice()
	sort.Strings(tags)

	r := &Recommender{
		tags:  tags,
		byKey: make(map[string]int, len(places)),
	}
	for _, p := range places {
		if _, dup := r.byKey[p.Key]; dup {
			continue
		}
		vec := make([]float64, len(tags))
		for i, t := range tags {
			if p.HasTag(t) {
				vec[i] = 1
			}
		}
		r.byKey[p.Key] = len(r.places)
		r.places = append(r.places, p)
		r.vectors = append(r.vectors, vec)
	}
	return r
}

// Tags returns the sorted tag universe.
func (r *Recommender) Tags() []string { return r.tags }

// Vector returns the tag vector of a place, or nil if the key is unknown.
func (r *Recommender) Vector(placeKey string) []float64 {
	i, ok := r.byKey[placeKey]
	if !ok {
		return nil
	}
	return r.vectors[i]
}

// SimilarToPlace ranks every other place by cosine similarity to the source
// place and returns up to n matches with similarity > 0. Places in exclude
// are skipped.
func (r *Recommender) SimilarToPlace(sourceKey string, exclude mapset.Set[string], n int) []Match {
	src := r.Vector(sourceKey)
	if src == nil || n <= 0 {
		return []Match{}
	}

	out := make([]Match, 0, len(r.places))
	for i, p := range r.places {
		if p.Key == sourceKey || excluded(exclude, p.Key) {
			continue
		}
		if sim := Cosine(src, r.vectors[i]); sim > 0 {
			out = append(out, Match{PlaceKey: p.Key, Score: sim})
		}
	}
	return top(out, n)
}

// SimilarToProfile scores each place as the sum of the profile weights of
// the tags it carries and returns up to n places by descending score. Places
// in exclude are skipped; untagged places score 0 and sort last among
// non-negative scores.
func (r *Recommender) SimilarToProfile(profile Profile, exclude mapset.Set[string], n int) []Match {
	if len(profile) == 0 || n <= 0 {
		return []Match{}
	}

	out := make([]Match, 0, len(r.places))
	for _, p := range r.places {
		if excluded(exclude, p.Key) {
			continue
		}
		score := 0
		for _, t := range lo.Uniq(p.Tags) {
			score += profile[t]
		}
		out = append(out, Match{PlaceKey: p.Key, Score: float64(score)})
	}
	return top(out, n)
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude.
func Cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Keys returns the place keys of matches in order.
func Keys(matches []Match) []string {
	return lo.Map(matches, func(m Match, _ int) string { return m.PlaceKey })
}

func excluded(exclude mapset.Set[string], key string) bool {
	return exclude != nil && exclude.ContainsOne(key)
}

// top sorts by descending score, keeping roster order on ties, and truncates.
func top(matches []Match, n int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
