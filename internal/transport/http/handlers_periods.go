package httptransport

import (
	"context"
	"net/http"
	"time"

	periodmodels "parrainage/internal/period/models"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/httputil"
)

// PeriodService is the period lifecycle as seen by the adapter.
type PeriodService interface {
	CreatePeriod(ctx context.Context, start, end time.Time) (*periodmodels.Period, error)
	OpenPeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	ClosePeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	TerminatePeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	IsWindowOpen(ctx context.Context, periodID id.PeriodID) (bool, error)
	GetPeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	CurrentPeriod(ctx context.Context) (*periodmodels.Period, error)
}

type createPeriodRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type windowResponse struct {
	PeriodID id.PeriodID `json:"period_id"`
	Open     bool        `json:"open"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createPeriodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "create_period", err)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		h.fail(ctx, w, "create_period", dErrors.New(dErrors.CodeBadRequest, "start and end are required"))
		return
	}
	period, err := h.svc.Periods.CreatePeriod(ctx, req.Start, req.End)
	if err != nil {
		h.fail(ctx, w, "create_period", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, period)
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	h.withPeriod(w, r, "get_period", h.svc.Periods.GetPeriod)
}

func (h *Handler) handleOpenPeriod(w http.ResponseWriter, r *http.Request) {
	h.withPeriod(w, r, "open_period", h.svc.Periods.OpenPeriod)
}

func (h *Handler) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	h.withPeriod(w, r, "close_period", h.svc.Periods.ClosePeriod)
}

func (h *Handler) handleTerminatePeriod(w http.ResponseWriter, r *http.Request) {
	h.withPeriod(w, r, "terminate_period", h.svc.Periods.TerminatePeriod)
}

func (h *Handler) withPeriod(w http.ResponseWriter, r *http.Request, op string,
	call func(context.Context, id.PeriodID) (*periodmodels.Period, error)) {
	ctx := r.Context()
	periodID, err := id.ParsePeriodID(pathParam(r, "periodID"))
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	period, err := call(ctx, periodID)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, period)
}

func (h *Handler) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := h.svc.Periods.CurrentPeriod(ctx)
	if err != nil {
		h.fail(ctx, w, "current_period", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, period)
}

func (h *Handler) handleWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	periodID, err := id.ParsePeriodID(pathParam(r, "periodID"))
	if err != nil {
		h.fail(ctx, w, "window", err)
		return
	}
	open, err := h.svc.Periods.IsWindowOpen(ctx, periodID)
	if err != nil {
		h.fail(ctx, w, "window", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, windowResponse{PeriodID: periodID, Open: open})
}
