package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/placerank/internal/domain/model"
)

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	// Enqueue submits an event; duplicate reports an already seen event ID.
	Enqueue(ctx context.Context, e model.Event) (duplicate bool, err error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID  string `json:"event_id"`
	Type     string `json:"type"`
	UserKey  string `json:"user_key"`
	PlaceKey string `json:"place_key"`
	TS       string `json:"ts"`
	Points   int    `json:"points"`
}

func (e eventRequest) toEvent() (model.Event, error) {
	switch {
	case strings.TrimSpace(e.Type) == "":
		return model.Event{}, errors.New("missing type")
	case strings.TrimSpace(e.UserKey) == "":
		return model.Event{}, errors.New("missing user_key")
	case strings.TrimSpace(e.PlaceKey) == "":
		return model.Event{}, errors.New("missing place_key")
	}
	t, err := model.ParseEventType(e.Type)
	if err != nil {
		return model.Event{}, err
	}
	var ts time.Time
	if e.TS != "" {
		if ts, err = time.Parse(time.RFC3339, e.TS); err != nil {
			return model.Event{}, errors.New("invalid ts; must be RFC3339")
		}
	}
	return model.Event{
		ID:       strings.TrimSpace(e.EventID),
		Type:     t,
		UserKey:  e.UserKey,
		PlaceKey: e.PlaceKey,
		TS:       ts,
		Points:   e.Points,
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	duplicate, err := h.deps.Enqueue(r.Context(), e)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
