// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RosterDependencies
	EventDependencies
	RankingDependencies
	RecommendationDependencies
	SimilarDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	rosterHandler          *RosterHandler
	eventsHandler          *EventsHandler
	rankingHandler         *RankingHandler
	recommendationsHandler *RecommendationsHandler
	similarHandler         *SimilarHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// list sizes clients can request.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(deps),
		rosterHandler:          NewRosterHandler(deps),
		eventsHandler:          NewEventsHandler(deps),
		rankingHandler:         NewRankingHandler(deps, maxLimit),
		recommendationsHandler: NewRecommendationsHandler(deps, maxLimit),
		similarHandler:         NewSimilarHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /users", MetricsMiddleware(s.rosterHandler.HandlePostUser, "users"))
	mux.HandleFunc("POST /places", MetricsMiddleware(s.rosterHandler.HandlePostPlace, "places"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("GET /ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("GET /users/{key}/recommendations",
		MetricsMiddleware(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
	mux.HandleFunc("GET /places/{key}/similar", MetricsMiddleware(s.similarHandler.HandleGetSimilar, "similar"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryLimit parses an optional positive integer query parameter. Missing
// values return def; values above maxLimit are rejected.
func queryLimit(r *http.Request, name string, def, maxLimit int) (int, string, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, "", true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "bad_request", false
	}
	if maxLimit > 0 && n > maxLimit {
		return 0, "limit_exceeded", false
	}
	return n, "", true
}
