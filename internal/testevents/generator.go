package testevents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/types"
	"github.com/okian/placerank/pkg/logger"
)

// eventMix is the cumulative share of each event type in generated traffic.
var eventMix = []struct { //nolint:gochecknoglobals // fixed generator distribution
	upTo float64
	typ  model.EventType
}{
	{0.50, model.CheckIn},
	{0.70, model.Liked},
	{0.85, model.Bookmarked},
	{0.95, model.Unliked},
	{1.00, model.Unbookmarked},
}

var eventNamespace = uuid.MustParse("5d1c4c8e-3f43-4e1b-9a8c-5b0f2c6f7a10") //nolint:gochecknoglobals // stable event ID namespace

// generator produces reproducible traffic from a seed.
type generator struct {
	rng  *rand.Rand
	seed uint64
	base time.Time
}

func newGenerator(seed uint64) *generator {
	return &generator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // load generation, not security
		seed: seed,
		base: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// generateTraffic creates the users, places and events of a run.
func generateTraffic(ctx context.Context, config *Config, stats *Stats) (Traffic, error) {
	if config.NumUsers <= 0 || config.NumPlaces <= 0 {
		return Traffic{}, fmt.Errorf("need at least one user and one place, got %d users and %d places",
			config.NumUsers, config.NumPlaces)
	}
	logger.Get().Info(ctx, "generating traffic",
		logger.Int("users", config.NumUsers),
		logger.Int("places", config.NumPlaces),
		logger.Int("events", config.NumEvents),
		logger.Uint64("seed", config.Seed))

	g := newGenerator(config.Seed)
	traffic := Traffic{
		Users:  g.users(config.NumUsers),
		Places: g.places(config.NumPlaces),
	}
	events, err := g.events(ctx, config.NumEvents, traffic.Users, traffic.Places)
	if err != nil {
		return Traffic{}, err
	}
	traffic.Events = events

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated traffic successfully", logger.Int("events", len(events)))
	return traffic, nil
}

func (g *generator) users(n int) []types.User {
	return lo.Times(n, func(i int) types.User {
		return types.User{Key: "user-" + strconv.Itoa(i) + "@example.com"}
	})
}

func (g *generator) places(n int) []types.Place {
	return lo.Times(n, func(i int) types.Place {
		name := "Place " + strconv.Itoa(i)
		lat := -90 + g.rng.Float64()*180
		lng := -180 + g.rng.Float64()*360
		return types.Place{
			Key:    model.PlaceKey(name, lat, lng),
			Name:   name,
			Tags:   g.tags(),
			Rating: float64(g.rng.IntN(41)+10) / 10,
			Lat:    lat,
			Lng:    lng,
		}
	})
}

func (g *generator) tags() []string {
	n := minTagsPerPlace + g.rng.IntN(maxTagsPerPlace-minTagsPerPlace+1)
	perm := g.rng.Perm(len(tagVocabulary))[:n]
	return lo.Map(perm, func(i, _ int) string { return tagVocabulary[i] })
}

// events draws places with a quadratic skew so a few places become popular.
func (g *generator) events(ctx context.Context, n int, users []types.User, places []types.Place) ([]Event, error) {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		if i%duplicateEvery == duplicateEvery-1 && len(events) > 0 {
			events = append(events, events[g.rng.IntN(len(events))])
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during event generation: %w", err)
		}
		r := g.rng.Float64()
		place := places[int(r*r*float64(len(places)))]
		user := users[g.rng.IntN(len(users))]
		events = append(events, Event{
			EventID:  uuid.NewSHA1(eventNamespace, []byte(strconv.FormatUint(g.seed, 10)+"/"+strconv.Itoa(i))).String(),
			Type:     string(g.eventType()),
			UserKey:  user.Key,
			PlaceKey: place.Key,
			TS:       g.base.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		})
	}
	return events, nil
}

func (g *generator) eventType() model.EventType {
	r := g.rng.Float64()
	for _, m := range eventMix {
		if r < m.upTo {
			return m.typ
		}
	}
	return model.CheckIn
}
