// Package store is the ledger store: the single source of truth for periods,
// the electoral roll, candidates, sponsorships, import batches and the event
// outbox.
//
// Two implementations share the Ledger contract. Postgres is used in deployed
// processes; Memory serializes transactions behind one mutex and emulates the
// unique constraints, and backs unit tests and local runs.
//
// Uniqueness of (voter, period) and of verification codes is enforced here and
// only here. Callers learn about a lost race through ErrSponsorshipExists or
// ErrVerificationCodeTaken, both derived from constraint violations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parrainage/internal/events"
	periodmodels "parrainage/internal/period/models"
	rollmodels "parrainage/internal/rollimport/models"
	sponsormodels "parrainage/internal/sponsorship/models"
	statsmodels "parrainage/internal/statistics/models"
	id "parrainage/pkg/domain"
	"parrainage/pkg/platform/sentinel"
)

// Store facts. Everything constraint-derived wraps sentinel.ErrConflict.
var (
	ErrNotFound              = sentinel.ErrNotFound
	ErrSponsorshipExists     = fmt.Errorf("%w: voter already sponsored in this period", sentinel.ErrConflict)
	ErrVerificationCodeTaken = fmt.Errorf("%w: verification code already issued", sentinel.ErrConflict)
	ErrVoterExists           = fmt.Errorf("%w: voter already on the roll", sentinel.ErrConflict)
)

// Constraint names shared by the schema and the violation mapping.
const (
	constraintVoterPeriod      = "sponsorships_voter_period_key"
	constraintVerificationCode = "sponsorships_verification_code_key"
	constraintVoterNationalID  = "voters_national_id_key"
	constraintVoterCardNumber  = "voters_card_number_key"
)

// PeriodLedger persists sponsorship periods.
type PeriodLedger interface {
	CreatePeriod(ctx context.Context, p *periodmodels.Period) error
	FindPeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	// FindPeriodForUpdate locks the period row until the transaction ends.
	FindPeriodForUpdate(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error)
	UpdatePeriod(ctx context.Context, p *periodmodels.Period) error
	// ListOpenPeriods returns every period OPEN in storage, including ones whose end passed.
	ListOpenPeriods(ctx context.Context) ([]*periodmodels.Period, error)
	// FindOverlappingPeriod returns a non-terminated period intersecting [start, end).
	FindOverlappingPeriod(ctx context.Context, start, end time.Time) (*periodmodels.Period, error)
	// LockWindowPeriod returns the period whose sponsorship window is open at now,
	// holding a shared row lock so a concurrent close waits for this transaction.
	LockWindowPeriod(ctx context.Context, now time.Time) (*periodmodels.Period, error)
	// LockPeriodTransitions serializes period opens and creations until the transaction ends.
	LockPeriodTransitions(ctx context.Context) error
}

// SponsorshipLedger persists sponsorships and the reference data they point to.
type SponsorshipLedger interface {
	CreateSponsorship(ctx context.Context, s *sponsormodels.Sponsorship) error
	FindSponsorshipByCode(ctx context.Context, code string) (*sponsormodels.Sponsorship, error)
	FindSponsorshipByVoter(ctx context.Context, voterID id.VoterID, periodID id.PeriodID) (*sponsormodels.Sponsorship, error)
	// UpdateSponsorshipStatus moves a sponsorship from one status to another;
	// it reports false when the row is no longer in the from status.
	UpdateSponsorshipStatus(ctx context.Context, sponsorshipID id.SponsorshipID, from, to sponsormodels.Status, now time.Time) (bool, error)
	// DeletePendingSponsorship removes the sponsorship only while it is PENDING.
	DeletePendingSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID) (bool, error)
	// RejectPendingSponsorships moves every PENDING sponsorship of the period to REJECTED.
	RejectPendingSponsorships(ctx context.Context, periodID id.PeriodID, now time.Time) (int64, error)
	FindCandidate(ctx context.Context, candidateID id.CandidateID) (*sponsormodels.Candidate, error)
	PutCandidate(ctx context.Context, c *sponsormodels.Candidate) error
	FindVoter(ctx context.Context, voterID id.VoterID) (*rollmodels.Voter, error)
	// FindVoterByKeys matches a live voter on both card number and national id.
	FindVoterByKeys(ctx context.Context, cardNumber, nationalID string) (*rollmodels.Voter, error)
}

// ImportLedger persists roll import batches, staging rows and the live roll.
type ImportLedger interface {
	CreateBatch(ctx context.Context, b *rollmodels.Batch) error
	FindBatch(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error)
	FindBatchForUpdate(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error)
	UpdateBatch(ctx context.Context, b *rollmodels.Batch) error
	// CountBatches counts batches in state other than the excluded one.
	CountBatches(ctx context.Context, state rollmodels.BatchState, exclude id.BatchID) (int, error)
	ListBatchesBefore(ctx context.Context, state rollmodels.BatchState, cutoff time.Time) ([]*rollmodels.Batch, error)
	DeleteTerminalBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// TryLockImport takes the import lock for the transaction; false means another holder.
	TryLockImport(ctx context.Context) (bool, error)
	// FindLiveVoters returns live voters matching any of the national IDs or card numbers.
	FindLiveVoters(ctx context.Context, nationalIDs, cardNumbers []string) ([]*rollmodels.Voter, error)
	PutVoter(ctx context.Context, v *rollmodels.Voter) error
	StageVoters(ctx context.Context, rows []rollmodels.StagedVoter) error
	CountStaged(ctx context.Context, batchID id.BatchID) (int, error)
	// PromoteStaged copies the batch's staged rows into the live roll and clears them.
	PromoteStaged(ctx context.Context, batchID id.BatchID) (int64, error)
	ClearStaged(ctx context.Context, batchID id.BatchID) (int64, error)
	RecordAttempt(ctx context.Context, a *rollmodels.ImportAttempt) error
	ListAttempts(ctx context.Context, uploadedBy string) ([]*rollmodels.ImportAttempt, error)
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatisticsLedger runs the aggregate queries behind statistics views.
type StatisticsLedger interface {
	CountByStatus(ctx context.Context, f statsmodels.Filter) (statsmodels.StatusCounts, error)
	CountByCandidate(ctx context.Context, f statsmodels.Filter) ([]statsmodels.CandidateCount, error)
	CountByRegion(ctx context.Context, f statsmodels.Filter) ([]statsmodels.RegionCount, error)
	CountByDay(ctx context.Context, f statsmodels.Filter) ([]statsmodels.DailyCount, error)
}

// OutboxLedger persists committed domain events until they are relayed.
type OutboxLedger interface {
	AppendOutbox(ctx context.Context, entries ...events.OutboxEntry) error
	// FetchUnpublished locks up to limit unpublished entries, oldest first,
	// skipping rows another relay holds.
	FetchUnpublished(ctx context.Context, limit int) ([]events.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ledger is the full store contract available inside a transaction.
type Ledger interface {
	PeriodLedger
	SponsorshipLedger
	ImportLedger
	StatisticsLedger
	OutboxLedger
}

// TxManager runs fn against a Ledger bound to one transaction. A nil error
// from fn commits; anything else rolls back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
}

// Runner narrows a TxManager to the store interface a service declares.
type Runner[S any] struct {
	manager TxManager
	view    func(Ledger) S
}

// Bind builds a Runner presenting the ledger to fn through view.
func Bind[S any](m TxManager, view func(Ledger) S) *Runner[S] {
	return &Runner[S]{manager: m, view: view}
}

func (r *Runner[S]) RunInTx(ctx context.Context, fn func(ctx context.Context, store S) error) error {
	return r.manager.RunInTx(ctx, func(ctx context.Context, l Ledger) error {
		return fn(ctx, r.view(l))
	})
}
