package api

import (
	"context"
	"net/http"

	"github.com/okian/placerank/internal/domain/types"
)

// SimilarDependencies defines the interface for content similarity.
type SimilarDependencies interface {
	Similar(ctx context.Context, placeKey, userKey string, n int) ([]types.SimilarPlace, error)
}

// SimilarHandler handles similar-place requests.
type SimilarHandler struct {
	deps     SimilarDependencies
	maxLimit int
}

// NewSimilarHandler creates a new similar-places handler.
func NewSimilarHandler(deps SimilarDependencies, maxLimit int) *SimilarHandler {
	return &SimilarHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetSimilar handles GET /places/{key}/similar?n=N&user=KEY requests.
func (h *SimilarHandler) HandleGetSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_similar"
	n, code, ok := queryLimit(r, "n", 0, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	matches, err := h.deps.Similar(r.Context(), r.PathValue("key"), r.URL.Query().Get("user"), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
