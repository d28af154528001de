package service

import (
	"context"
	"time"

	"parrainage/internal/rollimport/models"
	id "parrainage/pkg/domain"
)

// Store is the slice of the ledger the import pipeline works with.
type Store interface {
	CreateBatch(ctx context.Context, b *models.Batch) error
	FindBatch(ctx context.Context, batchID id.BatchID) (*models.Batch, error)
	FindBatchForUpdate(ctx context.Context, batchID id.BatchID) (*models.Batch, error)
	UpdateBatch(ctx context.Context, b *models.Batch) error
	CountBatches(ctx context.Context, state models.BatchState, exclude id.BatchID) (int, error)
	ListBatchesBefore(ctx context.Context, state models.BatchState, cutoff time.Time) ([]*models.Batch, error)
	DeleteTerminalBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TryLockImport(ctx context.Context) (bool, error)
	FindLiveVoters(ctx context.Context, nationalIDs, cardNumbers []string) ([]*models.Voter, error)
	StageVoters(ctx context.Context, rows []models.StagedVoter) error
	PromoteStaged(ctx context.Context, batchID id.BatchID) (int64, error)
	ClearStaged(ctx context.Context, batchID id.BatchID) (int64, error)
	RecordAttempt(ctx context.Context, a *models.ImportAttempt) error
	ListAttempts(ctx context.Context, uploadedBy string) ([]*models.ImportAttempt, error)
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRunner runs fn inside one ledger transaction. A nil error from fn commits.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
