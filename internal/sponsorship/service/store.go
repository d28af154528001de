package service

import (
	"context"
	"time"

	"parrainage/internal/events"
	periodmodels "parrainage/internal/period/models"
	rollmodels "parrainage/internal/rollimport/models"
	"parrainage/internal/sponsorship/models"
	id "parrainage/pkg/domain"
)

// Store is the slice of the ledger the sponsorship service works with.
type Store interface {
	FindPeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	LockWindowPeriod(ctx context.Context, now time.Time) (*periodmodels.Period, error)
	FindCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	FindVoter(ctx context.Context, voterID id.VoterID) (*rollmodels.Voter, error)
	FindVoterByKeys(ctx context.Context, cardNumber, nationalID string) (*rollmodels.Voter, error)
	FindSponsorshipByVoter(ctx context.Context, voterID id.VoterID, periodID id.PeriodID) (*models.Sponsorship, error)
	FindSponsorshipByCode(ctx context.Context, code string) (*models.Sponsorship, error)
	CreateSponsorship(ctx context.Context, s *models.Sponsorship) error
	UpdateSponsorshipStatus(ctx context.Context, sponsorshipID id.SponsorshipID, from, to models.Status, now time.Time) (bool, error)
	DeletePendingSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID) (bool, error)
	events.OutboxWriter
}

// TxRunner runs fn inside one ledger transaction. A nil error from fn commits.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
