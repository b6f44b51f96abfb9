package api

import (
	"context"
	"net/http"

	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/types"
)

// RosterDependencies registers users and places.
type RosterDependencies interface {
	AddUser(ctx context.Context, key string) (model.User, error)
	AddPlace(ctx context.Context, p model.Place) (model.Place, error)
}

// RosterHandler handles user and place registration.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

type userRequest struct {
	Key string `json:"key"`
}

type placeRequest struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
	Rating float64  `json:"rating"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
}

// HandlePostUser handles POST /users requests.
func (h *RosterHandler) HandlePostUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_user"
	var req userRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	u, err := h.deps.AddUser(r.Context(), req.Key)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.User{Key: u.Key})
}

// HandlePostPlace handles POST /places requests.
func (h *RosterHandler) HandlePostPlace(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_place"
	var req placeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.AddPlace(r.Context(), model.Place{
		Key: req.Key, Name: req.Name, Tags: req.Tags, Rating: req.Rating, Lat: req.Lat, Lng: req.Lng,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusCreated, types.Place{
		Key: p.Key, Name: p.Name, Tags: tags, Rating: p.Rating, Lat: p.Lat, Lng: p.Lng,
	})
}
