package testevents

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/placerank/internal/adapters/http/api"
	service "github.com/okian/placerank/internal/app"
	"github.com/okian/placerank/internal/domain/types"
	"github.com/okian/placerank/pkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(service.WithLogger(logger.Nop()), service.WithWorkerCount(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, 100).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func TestGenerateTraffic(t *testing.T) {
	convey.Convey("Given a generator configuration", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()
		config := &Config{NumUsers: 5, NumPlaces: 4, NumEvents: 120, Seed: 42}

		convey.Convey("When traffic is generated twice with the same seed", func() {
			first, err1 := generateTraffic(ctx, config, &Stats{})
			second, err2 := generateTraffic(ctx, config, &Stats{})

			convey.Convey("Then both runs are identical", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(second, convey.ShouldResemble, first)
			})

			convey.Convey("And every event references the generated roster", func() {
				users := mapset.NewThreadUnsafeSet[string]()
				for _, u := range first.Users {
					users.Add(u.Key)
				}
				places := mapset.NewThreadUnsafeSet[string]()
				for _, p := range first.Places {
					places.Add(p.Key)
					convey.So(len(p.Tags), convey.ShouldBeBetweenOrEqual, minTagsPerPlace, maxTagsPerPlace)
				}
				convey.So(first.Events, convey.ShouldHaveLength, 120)
				for _, e := range first.Events {
					convey.So(users.Contains(e.UserKey), convey.ShouldBeTrue)
					convey.So(places.Contains(e.PlaceKey), convey.ShouldBeTrue)
				}
			})

			convey.Convey("And some events are verbatim resubmissions", func() {
				ids := mapset.NewThreadUnsafeSet[string]()
				for _, e := range first.Events {
					ids.Add(e.EventID)
				}
				convey.So(ids.Cardinality(), convey.ShouldEqual, 120-120/duplicateEvery)
			})
		})

		convey.Convey("When a different seed is used", func() {
			a, _ := generateTraffic(ctx, config, &Stats{})
			other := *config
			other.Seed = 43
			b, _ := generateTraffic(ctx, &other, &Stats{})

			convey.Convey("Then the traffic differs", func() {
				convey.So(b.Events, convey.ShouldNotResemble, a.Events)
			})
		})

		convey.Convey("When the roster is empty", func() {
			_, err := generateTraffic(ctx, &Config{NumUsers: 0, NumPlaces: 3}, &Stats{})

			convey.Convey("Then generation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestVerifyRanking(t *testing.T) {
	places := []types.Place{{Key: "a"}, {Key: "b"}, {Key: "c"}}

	cases := []struct {
		name     string
		ranking  []types.RankedPlace
		topN     int
		problems int
	}{
		{"complete", []types.RankedPlace{{Rank: 1, PlaceKey: "b"}, {Rank: 2, PlaceKey: "a"}, {Rank: 3, PlaceKey: "c"}}, 10, 0},
		{"truncated", []types.RankedPlace{{Rank: 1, PlaceKey: "b"}, {Rank: 2, PlaceKey: "a"}}, 2, 0},
		{"incomplete", []types.RankedPlace{{Rank: 1, PlaceKey: "b"}, {Rank: 2, PlaceKey: "a"}}, 10, 1},
		{"repeating", []types.RankedPlace{{Rank: 1, PlaceKey: "b"}, {Rank: 2, PlaceKey: "b"}, {Rank: 3, PlaceKey: "c"}}, 10, 2},
		{"gapped", []types.RankedPlace{{Rank: 1, PlaceKey: "b"}, {Rank: 3, PlaceKey: "a"}, {Rank: 4, PlaceKey: "c"}}, 10, 2},
		{"empty", nil, 10, 1},
	}

	convey.Convey("Given IL rankings returned by the service", t, func() {
		for _, tc := range cases {
			convey.Convey("When checking a "+tc.name+" ranking", func() {
				convey.So(verifyRanking(tc.ranking, places, tc.topN), convey.ShouldHaveLength, tc.problems)
			})
		}
	})
}

func TestVerifyRecommendation(t *testing.T) {
	convey.Convey("Given a user who visited p1", t, func() {
		visited := visitedPlaces([]Event{{UserKey: "u1", PlaceKey: "p1"}, {UserKey: "u2", PlaceKey: "p2"}})

		convey.Convey("When the list skips visited places", func() {
			errs := verifyRecommendation("u1", types.Recommendation{PlaceKeys: []string{"p2", "p3"}}, visited["u1"])

			convey.Convey("Then it passes", func() {
				convey.So(errs, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the list contains a visited place", func() {
			errs := verifyRecommendation("u1", types.Recommendation{PlaceKeys: []string{"p1"}}, visited["u1"])

			convey.Convey("Then it is reported", func() {
				convey.So(errs, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the list is too long and repeats itself", func() {
			errs := verifyRecommendation("u1", types.Recommendation{PlaceKeys: []string{"p2", "p3", "p4", "p2"}}, nil)

			convey.Convey("Then both problems are reported", func() {
				convey.So(errs, convey.ShouldHaveLength, 2)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running placerank service", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		srv := newTestServer(t)
		output := filepath.Join(t.TempDir(), "out", "traffic.json")
		config := &Config{
			BaseURL:    srv.URL,
			NumUsers:   20,
			NumPlaces:  8,
			NumEvents:  300,
			TopN:       100,
			Sample:     20,
			Workers:    4,
			Timeout:    5 * time.Second,
			Seed:       7,
			OutputFile: output,
		}

		convey.Convey("When a full traffic run is executed", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err := Run(ctx, config)

			convey.Convey("Then it verifies cleanly and saves the traffic", func() {
				convey.So(err, convey.ShouldBeNil)

				data, readErr := os.ReadFile(output)
				convey.So(readErr, convey.ShouldBeNil)
				var saved Traffic
				convey.So(json.Unmarshal(data, &saved), convey.ShouldBeNil)
				convey.So(saved.Users, convey.ShouldHaveLength, 20)
				convey.So(saved.Places, convey.ShouldHaveLength, 8)
				convey.So(saved.Events, convey.ShouldHaveLength, 300)
			})
		})

		convey.Convey("When the events are submitted directly", func() {
			ctx := context.Background()
			stats := &Stats{}
			traffic, err := generateTraffic(ctx, config, stats)
			convey.So(err, convey.ShouldBeNil)
			convey.So(registerRoster(ctx, config, traffic, stats), convey.ShouldBeNil)
			convey.So(submitEvents(ctx, config, traffic.Events, stats), convey.ShouldBeNil)

			convey.Convey("Then resubmissions are acknowledged as duplicates", func() {
				convey.So(stats.UsersRegistered, convey.ShouldEqual, 20)
				convey.So(stats.PlacesRegistered, convey.ShouldEqual, 8)
				convey.So(stats.EventsFailed, convey.ShouldEqual, 0)
				convey.So(stats.EventsDuplicate, convey.ShouldEqual, 300/duplicateEvery)
				convey.So(stats.EventsSuccessful, convey.ShouldEqual, 300-300/duplicateEvery)
			})

			convey.Convey("And the service catches up", func() {
				convey.So(waitForProcessing(ctx, config, stats.EventsSuccessful), convey.ShouldBeNil)
			})
		})
	})
}

func TestCheckServiceHealth(t *testing.T) {
	convey.Convey("Given an unhealthy endpoint", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		convey.Convey("When health is checked", func() {
			err := checkServiceHealth(context.Background(), &Config{BaseURL: srv.URL, Timeout: time.Second})

			convey.Convey("Then the status is reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "503")
			})
		})
	})
}
