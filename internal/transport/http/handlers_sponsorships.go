package httptransport

import (
	"context"
	"net/http"

	sponsorshipmodels "parrainage/internal/sponsorship/models"
	id "parrainage/pkg/domain"
	"parrainage/pkg/platform/httputil"
	"parrainage/pkg/requestcontext"
)

// SponsorshipService is the sponsorship ledger as seen by the adapter.
type SponsorshipService interface {
	CreateSponsorship(ctx context.Context, voterID id.VoterID, candidateID id.CandidateID) (*sponsorshipmodels.Receipt, error)
	WithdrawSponsorship(ctx context.Context, voterID id.VoterID, periodID id.PeriodID) error
	VerifySponsorship(ctx context.Context, code string) (*sponsorshipmodels.SponsorshipView, error)
	ValidateSponsorship(ctx context.Context, code string) (*sponsorshipmodels.SponsorshipView, error)
	CheckEligibility(ctx context.Context, cardNumber, nationalID string) (*sponsorshipmodels.Eligibility, error)
}

type createSponsorshipRequest struct {
	CandidateID string `json:"candidate_id"`
}

// handleCreateSponsorship records a sponsorship for the calling voter.
func (h *Handler) handleCreateSponsorship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSponsorshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "create_sponsorship", err)
		return
	}
	candidateID, err := id.ParseCandidateID(req.CandidateID)
	if err != nil {
		h.fail(ctx, w, "create_sponsorship", err)
		return
	}
	voterID := id.VoterID(requestcontext.CallerID(ctx))
	receipt, err := h.svc.Sponsorships.CreateSponsorship(ctx, voterID, candidateID)
	if err != nil {
		h.fail(ctx, w, "create_sponsorship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	periodID, err := id.ParsePeriodID(pathParam(r, "periodID"))
	if err != nil {
		h.fail(ctx, w, "withdraw_sponsorship", err)
		return
	}
	voterID := id.VoterID(requestcontext.CallerID(ctx))
	if err := h.svc.Sponsorships.WithdrawSponsorship(ctx, voterID, periodID); err != nil {
		h.fail(ctx, w, "withdraw_sponsorship", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.svc.Sponsorships.VerifySponsorship(ctx, pathParam(r, "code"))
	if err != nil {
		h.fail(ctx, w, "verify_sponsorship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.svc.Sponsorships.ValidateSponsorship(ctx, pathParam(r, "code"))
	if err != nil {
		h.fail(ctx, w, "validate_sponsorship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// handleEligibility answers whether the voter named by ?card_number and
// ?national_id may sponsor in the open period.
func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	result, err := h.svc.Sponsorships.CheckEligibility(ctx, q.Get("card_number"), q.Get("national_id"))
	if err != nil {
		h.fail(ctx, w, "check_eligibility", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, result)
}
