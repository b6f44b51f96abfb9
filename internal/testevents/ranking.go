package testevents

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/placerank/internal/domain/types"
)

// fetchRecommendations retrieves recommendations for the first config.Sample users.
func fetchRecommendations(ctx context.Context, config *Config, users []types.User) (map[string]types.Recommendation, error) {
	sample := users
	if config.Sample < len(sample) {
		sample = sample[:config.Sample]
	}
	log.Printf("🎯 Retrieving recommendations for %d users with %d workers...", len(sample), config.Workers)

	client := newHTTPClient(config.BaseURL, config.Timeout)
	var (
		mu   sync.Mutex
		recs = make(map[string]types.Recommendation, len(sample))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, u := range sample {
		g.Go(func() error {
			var rec types.Recommendation
			path := fmt.Sprintf("/users/%s/recommendations?n=%d", url.PathEscape(u.Key), RecommendationSize)
			if err := client.getJSON(gctx, path, &rec); err != nil {
				return fmt.Errorf("recommendations for %s: %w", u.Key, err)
			}
			mu.Lock()
			recs[u.Key] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("✅ Retrieved %d recommendation lists", len(recs))
	return recs, nil
}
