// Package recommend picks top-N places for a user: profile-based content
// matches when the user has history, the global IL ranking otherwise.
package recommend

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/placerank/internal/domain/content"
	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/ranking"
)

// DefaultSize is the default number of recommendations.
const DefaultSize = 3

// Strategy records which path produced a recommendation list.
type Strategy string

// Recommendation strategies.
const (
	StrategyProfile   Strategy = "profile"
	StrategyProfileIL Strategy = "profile+il"
	StrategyColdStart Strategy = "cold_start"
)

// Ranker returns the IL ranking for a snapshot as ordered place keys.
type Ranker func(snap model.Snapshot) []string

// Result is a recommendation list for one user.
type Result struct {
	UserKey   string
	PlaceKeys []string
	Strategy  Strategy
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithSize sets the target number of recommendations.
func WithSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithWeights sets the activity weights used to build tag profiles.
func WithWeights(w model.Weights) Option {
	return func(o *Orchestrator) {
		if len(w) > 0 {
			o.weights = w
		}
	}
}

// WithRanker replaces the IL ranking computation, e.g. with a memoized one.
func WithRanker(r Ranker) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.rank = r
		}
	}
}

// Orchestrator is stateless apart from its configuration.
type Orchestrator struct {
	size    int
	weights model.Weights
	rank    Ranker
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		size:    DefaultSize,
		weights: model.DefaultWeights(),
		rank:    ILKeys,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Size returns the configured target size.
func (o *Orchestrator) Size() int { return o.size }

// Recommend returns up to n places the user has not visited. A non-positive
// n uses the configured size.
func (o *Orchestrator) Recommend(snap model.Snapshot, userKey string, n int) Result {
	if n <= 0 {
		n = o.size
	}
	res := Result{UserKey: userKey, PlaceKeys: []string{}}
	visited := mapset.NewThreadUnsafeSet(content.Visited(userKey, snap.Events)...)

	profile := content.BuildProfile(userKey, snap.Places, snap.Events, o.weights)
	if len(profile) == 0 {
		res.Strategy = StrategyColdStart
		res.PlaceKeys = fill(res.PlaceKeys, o.rank(snap), visited, n)
		return res
	}

	matches := content.New(snap.Places).SimilarToProfile(profile, visited, n)
	res.Strategy = StrategyProfile
	res.PlaceKeys = append(res.PlaceKeys, content.Keys(matches)...)
	if len(res.PlaceKeys) < n {
		res.Strategy = StrategyProfileIL
		res.PlaceKeys = fill(res.PlaceKeys, o.rank(snap), visited, n)
	}
	return res
}

// SimilarPlaces returns up to n places similar to placeKey, skipping places
// the user has visited. An empty userKey excludes nothing.
func (o *Orchestrator) SimilarPlaces(snap model.Snapshot, placeKey, userKey string, n int) []content.Match {
	if n <= 0 {
		n = o.size
	}
	var exclude mapset.Set[string]
	if userKey != "" {
		exclude = mapset.NewThreadUnsafeSet(content.Visited(userKey, snap.Events)...)
	}
	return content.New(snap.Places).SimilarToPlace(placeKey, exclude, n)
}

// ILKeys computes the IL ranking of a snapshot.
func ILKeys(snap model.Snapshot) []string {
	return ranking.Keys(ranking.IL(snap.Users, snap.Places, snap.Events))
}

// fill appends keys from ranked that are neither visited nor already chosen
// until out holds n keys or ranked is exhausted.
func fill(out, ranked []string, visited mapset.Set[string], n int) []string {
	chosen := mapset.NewThreadUnsafeSet(out...)
	for _, key := range ranked {
		if len(out) >= n {
			break
		}
		if visited.ContainsOne(key) || chosen.ContainsOne(key) {
			continue
		}
		chosen.Add(key)
		out = append(out, key)
	}
	return out
}
