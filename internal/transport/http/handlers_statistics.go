package httptransport

import (
	"context"
	"net/http"

	statsmodels "parrainage/internal/statistics/models"
	"parrainage/pkg/platform/httputil"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, rawScope string) (*statsmodels.StatisticsView, error)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.svc.Statistics.GetStatistics(ctx, pathParam(r, "scope"))
	if err != nil {
		h.fail(ctx, w, "get_statistics", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, view)
}
