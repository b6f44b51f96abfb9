package api

import (
	"context"
	"net/http"

	"github.com/okian/placerank/internal/domain/types"
)

// RankingDependencies defines the interface for the IL ranking.
type RankingDependencies interface {
	Ranking(ctx context.Context, limit int) ([]types.RankedPlace, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int) *RankingHandler {
	return &RankingHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRanking handles GET /ranking?limit=N requests. A missing limit
// returns up to maxLimit entries.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	n, code, ok := queryLimit(r, "limit", h.maxLimit, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Ranking(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
