package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/placerank/internal/adapters/http/api"
	service "github.com/okian/placerank/internal/app"
	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/types"
	"github.com/okian/placerank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDeps implements api.Dependencies with canned answers.
type mockDeps struct {
	enqueueDup bool
	enqueueErr error
	enqueued   []model.Event

	ranking    []types.RankedPlace
	rankingErr error
	lastLimit  int

	recommendErr error
	lastUser     string
	lastN        int

	similarErr  error
	lastPlace   string
	lastSimUser string

	addErr error
}

func (m *mockDeps) AddUser(_ context.Context, key string) (model.User, error) {
	if m.addErr != nil {
		return model.User{}, m.addErr
	}
	return model.User{Key: model.NormalizeUserKey(key)}, nil
}

func (m *mockDeps) AddPlace(_ context.Context, p model.Place) (model.Place, error) {
	if m.addErr != nil {
		return model.Place{}, m.addErr
	}
	if p.Key == "" {
		p.Key = "derived"
	}
	return p, nil
}

func (m *mockDeps) Enqueue(_ context.Context, e model.Event) (bool, error) {
	if m.enqueueErr != nil {
		return false, m.enqueueErr
	}
	m.enqueued = append(m.enqueued, e)
	return m.enqueueDup, nil
}

func (m *mockDeps) Ranking(_ context.Context, limit int) ([]types.RankedPlace, error) {
	m.lastLimit = limit
	if m.rankingErr != nil {
		return nil, m.rankingErr
	}
	if limit < len(m.ranking) {
		return m.ranking[:limit], nil
	}
	return m.ranking, nil
}

func (m *mockDeps) Recommend(_ context.Context, userKey string, n int) (types.Recommendation, error) {
	m.lastUser, m.lastN = userKey, n
	if m.recommendErr != nil {
		return types.Recommendation{}, m.recommendErr
	}
	return types.Recommendation{UserKey: userKey, PlaceKeys: []string{"p2", "p3"}, Strategy: "profile+il"}, nil
}

func (m *mockDeps) Similar(_ context.Context, placeKey, userKey string, n int) ([]types.SimilarPlace, error) {
	m.lastPlace, m.lastSimUser, m.lastN = placeKey, userKey, n
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	return []types.SimilarPlace{{PlaceKey: "p1", Similarity: 0.5}}, nil
}

func (m *mockDeps) GetStats(_ context.Context) map[string]any {
	return map[string]any{"started": true}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, 10).Register(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return body.Code
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the API over mock dependencies", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When posting a valid event", func() {
			rec := do(mux, http.MethodPost, "/events",
				`{"event_id":"e1","type":"Check_In","user_key":"u1","place_key":"p1","ts":"2024-05-01T12:00:00Z","points":3}`)

			Convey("Then it is accepted and converted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].Type, ShouldEqual, model.CheckIn)
				So(deps.enqueued[0].Points, ShouldEqual, 3)
				So(deps.enqueued[0].TS.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the service reports a duplicate", func() {
			deps.enqueueDup = true
			rec := do(mux, http.MethodPost, "/events", `{"type":"liked","user_key":"u1","place_key":"p1"}`)

			Convey("Then 200 with duplicate=true is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("%w: full", service.ErrBackpressure)
			rec := do(mux, http.MethodPost, "/events", `{"type":"liked","user_key":"u1","place_key":"p1"}`)

			Convey("Then 429 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(rec), ShouldEqual, "backpressure")
			})
		})

		Convey("When the event references an unknown user", func() {
			deps.enqueueErr = fmt.Errorf("%w: ghost", service.ErrUnknownUser)
			rec := do(mux, http.MethodPost, "/events", `{"type":"liked","user_key":"ghost","place_key":"p1"}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the payload is invalid", func() {
			cases := []string{
				`{"type":"liked","user_key":"u1"}`,
				`{"type":"shared","user_key":"u1","place_key":"p1"}`,
				`{"type":"liked","user_key":"u1","place_key":"p1","ts":"yesterday"}`,
				`{"type":"liked","user_key":"u1","place_key":"p1","extra":1}`,
				`not json`,
			}
			for _, body := range cases {
				rec := do(mux, http.MethodPost, "/events", body)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(rec), ShouldEqual, "bad_request")
			}
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("When using the wrong method", func() {
			rec := do(mux, http.MethodGet, "/events", "")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestRosterHandler(t *testing.T) {
	Convey("Given the API over mock dependencies", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When registering a user", func() {
			rec := do(mux, http.MethodPost, "/users", `{"key":"Ada@Example.com"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(rec.Body.String(), ShouldContainSubstring, `"key":"ada@example.com"`)
		})

		Convey("When registering a place without tags", func() {
			rec := do(mux, http.MethodPost, "/places", `{"name":"Cafe","lat":1,"lng":2}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(rec.Body.String(), ShouldContainSubstring, `"key":"derived"`)
			So(rec.Body.String(), ShouldContainSubstring, `"tags":[]`)
		})

		Convey("When the key already exists", func() {
			deps.addErr = fmt.Errorf("add user u1: %w", service.ErrAlreadyExists)
			rec := do(mux, http.MethodPost, "/users", `{"key":"u1"}`)
			So(rec.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(rec), ShouldEqual, "conflict")
		})

		Convey("When the input is rejected", func() {
			deps.addErr = service.ErrInvalidInput
			rec := do(mux, http.MethodPost, "/places", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReadHandlers(t *testing.T) {
	Convey("Given the API over mock dependencies", t, func() {
		deps := &mockDeps{ranking: []types.RankedPlace{
			{Rank: 1, PlaceKey: "p2", ISF: 0.7, ISP: 0.6},
			{Rank: 2, PlaceKey: "p3", ISF: 0.7, ISP: 0.5},
			{Rank: 3, PlaceKey: "p1", ISF: 0.2, ISP: 0.3},
		}}
		mux := newMux(deps)

		Convey("When reading the ranking with a limit", func() {
			rec := do(mux, http.MethodGet, "/ranking?limit=2", "")

			Convey("Then the first entries are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []types.RankedPlace
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, deps.ranking[:2])
			})
		})

		Convey("When reading the ranking without a limit", func() {
			rec := do(mux, http.MethodGet, "/ranking", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 10)
		})

		Convey("When the limit is invalid or too large", func() {
			So(do(mux, http.MethodGet, "/ranking?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/ranking?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			rec := do(mux, http.MethodGet, "/ranking?limit=11", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(rec), ShouldEqual, "limit_exceeded")
		})

		Convey("When the service fails", func() {
			deps.rankingErr = errors.New("boom")
			So(do(mux, http.MethodGet, "/ranking", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When requesting recommendations", func() {
			rec := do(mux, http.MethodGet, "/users/u1/recommendations?n=2", "")

			Convey("Then the path key and n reach the service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastUser, ShouldEqual, "u1")
				So(deps.lastN, ShouldEqual, 2)
				So(rec.Body.String(), ShouldContainSubstring, `"strategy":"profile+il"`)
			})
		})

		Convey("When requesting recommendations for an unknown user", func() {
			deps.recommendErr = fmt.Errorf("%w: ghost", service.ErrUnknownUser)
			rec := do(mux, http.MethodGet, "/users/ghost/recommendations", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(deps.lastN, ShouldEqual, 0)
		})

		Convey("When requesting similar places for a user", func() {
			rec := do(mux, http.MethodGet, "/places/p2/similar?n=3&user=u1", "")

			Convey("Then the place, user and n reach the service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastPlace, ShouldEqual, "p2")
				So(deps.lastSimUser, ShouldEqual, "u1")
				So(deps.lastN, ShouldEqual, 3)
				So(rec.Body.String(), ShouldContainSubstring, `"similarity":0.5`)
			})
		})

		Convey("When the service is not started", func() {
			deps.similarErr = service.ErrNotStarted
			rec := do(mux, http.MethodGet, "/places/p2/similar", "")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When reading stats and metrics", func() {
			stats := do(mux, http.MethodGet, "/stats", "")
			health := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then both respond", func() {
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"started":true`)
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "placerank_recommender_http_requests_total")
			})
		})
	})
}

func TestAPIEndToEnd(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })
		mux := newMux(svc)

		for _, body := range []string{`{"key":"u1"}`, `{"key":"u2"}`} {
			So(do(mux, http.MethodPost, "/users", body).Code, ShouldEqual, http.StatusCreated)
		}
		for _, body := range []string{
			`{"key":"p1","name":"One","tags":["a"]}`,
			`{"key":"p2","name":"Two","tags":["a","b"]}`,
			`{"key":"p3","name":"Three","tags":["b"]}`,
		} {
			So(do(mux, http.MethodPost, "/places", body).Code, ShouldEqual, http.StatusCreated)
		}

		Convey("When check-ins are posted and processed", func() {
			for i, pair := range [][2]string{{"u1", "p1"}, {"u2", "p2"}, {"u2", "p3"}} {
				body := fmt.Sprintf(`{"type":"check_in","user_key":%q,"place_key":%q,"ts":"2024-05-01T12:00:0%dZ"}`, pair[0], pair[1], i)
				So(do(mux, http.MethodPost, "/events", body).Code, ShouldEqual, http.StatusAccepted)
			}
			deadline := time.Now().Add(time.Second)
			for time.Now().Before(deadline) {
				if n, ok := svc.GetStats(ctx)["events"].(int); ok && n == 3 {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then the ranking puts p1 last", func() {
				rec := do(mux, http.MethodGet, "/ranking", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []types.RankedPlace
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got[0].PlaceKey, ShouldEqual, "p2")
				So(got[2].PlaceKey, ShouldEqual, "p1")
			})

			Convey("Then u1 gets both unvisited places, topped up from the ranking", func() {
				rec := do(mux, http.MethodGet, "/users/u1/recommendations", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got types.Recommendation
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.PlaceKeys, ShouldResemble, []string{"p2", "p3"})
				So(got.Strategy, ShouldEqual, "profile+il")
			})
		})
	})
}
