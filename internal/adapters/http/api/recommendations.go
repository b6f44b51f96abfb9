package api

import (
	"context"
	"net/http"

	"github.com/okian/placerank/internal/domain/types"
)

// RecommendationDependencies defines the interface for user recommendations.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, userKey string, n int) (types.Recommendation, error)
}

// RecommendationsHandler handles recommendation requests.
type RecommendationsHandler struct {
	deps     RecommendationDependencies
	maxLimit int
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps RecommendationDependencies, maxLimit int) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRecommendations handles GET /users/{key}/recommendations?n=N requests.
// A missing n uses the service default.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recommendations"
	n, code, ok := queryLimit(r, "n", 0, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Recommend(r.Context(), r.PathValue("key"), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
