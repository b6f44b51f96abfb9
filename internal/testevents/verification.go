package testevents

import (
	"context"
	"errors"
	"fmt"
	"log"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	"github.com/okian/placerank/internal/domain/types"
)

// errVerification is returned when the service output breaks a ranking property.
var errVerification = errors.New("verification failed")

// verifyResults checks the ranking and the recommendation lists against the
// submitted traffic and returns every violation found.
func verifyResults(ctx context.Context, config *Config, traffic Traffic, ranking []types.RankedPlace,
	recs map[string]types.Recommendation, stats *Stats,
) error {
	log.Println("🔍 Verifying results...")

	var problems []error
	problems = append(problems, verifyRanking(ranking, traffic.Places, config.TopN)...)

	visited := visitedPlaces(traffic.Events)
	for user, rec := range recs {
		if rec.Strategy == "cold_start" {
			stats.ColdStarts++
		}
		var seen mapset.Set[string]
		// A failed submission leaves the server's visited set smaller than ours.
		if stats.EventsFailed == 0 {
			seen = visited[user]
		}
		errs := verifyRecommendation(user, rec, seen)
		if len(errs) == 0 {
			stats.RecommendationsOK++
		}
		problems = append(problems, errs...)
	}

	if len(problems) > 0 {
		for _, p := range problems {
			log.Printf("⚠️  %v", p)
		}
		return fmt.Errorf("%w: %d problems", errVerification, len(problems))
	}

	displayTopPlaces(ranking, traffic.Places, config.Verbose)
	log.Println("✅ Result verification completed")
	return ctx.Err()
}

// verifyRanking checks ranks are 1..k with unique places. When every place fits
// within topN the ranking must cover the whole roster.
func verifyRanking(ranking []types.RankedPlace, places []types.Place, topN int) []error {
	var problems []error
	if len(ranking) == 0 {
		return []error{errors.New("empty ranking")}
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, e := range ranking {
		if e.Rank != i+1 {
			problems = append(problems, fmt.Errorf("entry %d has rank %d", i, e.Rank))
		}
		if !seen.Add(e.PlaceKey) {
			problems = append(problems, fmt.Errorf("place %s ranked twice", e.PlaceKey))
		}
	}
	if len(places) <= topN {
		want := mapset.NewThreadUnsafeSet(lo.Map(places, func(p types.Place, _ int) string { return p.Key })...)
		if missing := want.Difference(seen); missing.Cardinality() > 0 {
			problems = append(problems, fmt.Errorf("%d registered places missing from ranking", missing.Cardinality()))
		}
	}
	return problems
}

// verifyRecommendation checks a list is short enough, has no repeats and skips
// visited places.
func verifyRecommendation(user string, rec types.Recommendation, visited mapset.Set[string]) []error {
	var problems []error
	if len(rec.PlaceKeys) > RecommendationSize {
		problems = append(problems, fmt.Errorf("user %s: %d recommendations, want at most %d",
			user, len(rec.PlaceKeys), RecommendationSize))
	}
	if dups := lo.FindDuplicates(rec.PlaceKeys); len(dups) > 0 {
		problems = append(problems, fmt.Errorf("user %s: repeated recommendations %v", user, dups))
	}
	if visited != nil {
		for _, key := range rec.PlaceKeys {
			if visited.Contains(key) {
				problems = append(problems, fmt.Errorf("user %s: recommended visited place %s", user, key))
			}
		}
	}
	return problems
}

// visitedPlaces maps each user to the places they have any event on.
func visitedPlaces(events []Event) map[string]mapset.Set[string] {
	visited := make(map[string]mapset.Set[string])
	for _, e := range events {
		s, ok := visited[e.UserKey]
		if !ok {
			s = mapset.NewThreadUnsafeSet[string]()
			visited[e.UserKey] = s
		}
		s.Add(e.PlaceKey)
	}
	return visited
}

// displayTopPlaces shows the head of the ranking.
func displayTopPlaces(ranking []types.RankedPlace, places []types.Place, verbose bool) {
	names := lo.SliceToMap(places, func(p types.Place) (string, string) { return p.Key, p.Name })
	topN := min(10, len(ranking))

	log.Printf("🏆 Top %d places:", topN)
	for _, e := range ranking[:topN] {
		log.Printf("   %d. %s (%s) - ISF: %.4f ISP: %.4f", e.Rank, names[e.PlaceKey], e.PlaceKey, e.ISF, e.ISP)
	}

	if verbose {
		isf := lo.Map(ranking, func(e types.RankedPlace, _ int) float64 { return e.ISF })
		log.Printf("📊 ISF mean over %d entries: %.4f", len(isf), lo.Mean(isf))
	}
}
