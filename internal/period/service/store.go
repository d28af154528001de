package service

import (
	"context"
	"time"

	"parrainage/internal/events"
	"parrainage/internal/period/models"
	id "parrainage/pkg/domain"
)

// Store is the slice of the ledger the period lifecycle works with.
type Store interface {
	CreatePeriod(ctx context.Context, p *models.Period) error
	FindPeriod(ctx context.Context, periodID id.PeriodID) (*models.Period, error)
	FindPeriodForUpdate(ctx context.Context, periodID id.PeriodID) (*models.Period, error)
	UpdatePeriod(ctx context.Context, p *models.Period) error
	ListOpenPeriods(ctx context.Context) ([]*models.Period, error)
	FindOverlappingPeriod(ctx context.Context, start, end time.Time) (*models.Period, error)
	LockPeriodTransitions(ctx context.Context) error
	RejectPendingSponsorships(ctx context.Context, periodID id.PeriodID, now time.Time) (int64, error)
	events.OutboxWriter
}

// TxRunner runs fn inside one ledger transaction. A nil error from fn commits.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
