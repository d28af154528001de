// Package service runs the electoral roll import pipeline.
//
// A stage call records a PENDING batch, passes the upload through the checksum,
// encoding and row gates, and either stages every row or rejects the batch
// with its errors. Promotion copies a STAGED batch into the live roll in one
// transaction under the import lock.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledgerstore "parrainage/internal/ledger/store"
	importmetrics "parrainage/internal/rollimport/metrics"
	"parrainage/internal/rollimport/models"
	"parrainage/internal/rollimport/parser"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/sentinel"
	"parrainage/pkg/requestcontext"
)

// DefaultPendingTimeout is how long a batch may sit PENDING before cleanup
// rejects it as abandoned.
const DefaultPendingTimeout = time.Hour

var tracer = otel.Tracer("parrainage/rollimport")

// StageCommand is one uploaded roll.
type StageCommand struct {
	Raw        []byte
	Checksum   string
	Encoding   string
	UploadedBy string
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	AbandonedBatches int
	DeletedBatches   int64
	DeletedAttempts  int64
}

// Service orchestrates roll imports.
type Service struct {
	tx             TxRunner
	logger         *slog.Logger
	metrics        *importmetrics.Metrics
	pendingTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *importmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPendingTimeout sets how long a PENDING batch may block promotion before
// it is treated as abandoned.
func WithPendingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pendingTimeout = d
		}
	}
}

func New(tx TxRunner, opts ...Option) *Service {
	s := &Service{tx: tx, pendingTimeout: DefaultPendingTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageImportBatch validates an upload and stages its rows.
//
// The result is non-nil whenever a batch was recorded. A failed checksum or
// encoding gate returns the REJECTED batch together with the gate's error.
// Row validation failures are not errors: the batch comes back REJECTED with
// its row errors and a nil error.
func (s *Service) StageImportBatch(ctx context.Context, cmd StageCommand) (*models.StageResult, error) {
	ctx, span := tracer.Start(ctx, "rollimport.stage", trace.WithAttributes(
		attribute.Int("upload.bytes", len(cmd.Raw)),
		attribute.String("upload.encoding", cmd.Encoding),
	))
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveStageLatency(time.Since(start)) }()

	if strings.TrimSpace(cmd.UploadedBy) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "uploader is required")
	}

	now := requestcontext.Now(ctx)
	claimed := strings.ToLower(strings.TrimSpace(cmd.Checksum))
	enc, encErr := parser.ParseEncoding(cmd.Encoding)
	if encErr != nil {
		enc = models.Encoding(strings.ToUpper(strings.TrimSpace(cmd.Encoding)))
	}

	batch := models.NewBatch(id.BatchID(uuid.New()), claimed, enc, cmd.UploadedBy, now)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		return store.CreateBatch(ctx, batch)
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to record import batch")
	}
	span.SetAttributes(attribute.String("batch.id", batch.ID.String()))

	if err := parser.VerifyChecksum(cmd.Raw, claimed); err != nil {
		return s.rejectAtGate(ctx, batch, "checksum", err)
	}
	if encErr != nil {
		return s.rejectAtGate(ctx, batch, "encoding", encErr)
	}
	text, err := parser.Decode(cmd.Raw, enc)
	if err != nil {
		return s.rejectAtGate(ctx, batch, "encoding", err)
	}

	rows, formatErrs := parser.Parse(text)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		b := *batch
		live, err := liveDuplicates(ctx, store, rows)
		if err != nil {
			return err
		}
		rowErrs := mergeRowErrors(formatErrs, live)

		if len(rowErrs) > 0 {
			if err := b.MarkRejected(rowErrs, requestcontext.Now(ctx)); err != nil {
				return err
			}
			if err := store.UpdateBatch(ctx, &b); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject import batch")
			}
			*batch = b
			return s.recordAttempt(ctx, store, &b, models.AttemptError, fmt.Sprintf("%d validation errors", len(rowErrs)))
		}

		staged := make([]models.StagedVoter, 0, len(rows))
		for _, r := range rows {
			v := r.Voter
			v.ID = id.VoterID(uuid.New())
			staged = append(staged, models.StagedVoter{BatchID: b.ID, Row: r.Number, Voter: v})
		}
		if err := store.StageVoters(ctx, staged); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage voters")
		}
		if err := b.MarkStaged(len(staged), requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := store.UpdateBatch(ctx, &b); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark import batch staged")
		}
		*batch = b
		return s.recordAttempt(ctx, store, &b, models.AttemptSuccess, fmt.Sprintf("%d rows staged", len(staged)))
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to stage import batch")
	}

	result := stageResult(batch)
	if batch.State == models.BatchRejected {
		s.metrics.IncrementBatch(string(models.BatchRejected), "validation")
		s.logAudit(ctx, "import_batch_rejected", "batch_id", batch.ID, "uploaded_by", batch.UploadedBy, "error_count", len(batch.Errors))
		return result, nil
	}
	s.metrics.IncrementBatch(string(models.BatchStaged), "")
	s.metrics.AddStaged(batch.RowCount)
	s.logAudit(ctx, "import_batch_staged", "batch_id", batch.ID, "uploaded_by", batch.UploadedBy, "row_count", batch.RowCount)
	return result, nil
}

// rejectAtGate marks batch REJECTED after a failed checksum or encoding gate
// and returns gateErr with the result.
func (s *Service) rejectAtGate(ctx context.Context, batch *models.Batch, gate string, gateErr error) (*models.StageResult, error) {
	message := gateErr.Error()
	if de, ok := dErrors.As(gateErr); ok {
		message = de.Message
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		b := *batch
		if err := b.MarkRejected([]models.RowError{{Row: 0, Message: message}}, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := store.UpdateBatch(ctx, &b); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject import batch")
		}
		*batch = b
		return s.recordAttempt(ctx, store, &b, models.AttemptError, message)
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to reject import batch")
	}

	s.metrics.IncrementBatch(string(models.BatchRejected), gate)
	s.logAudit(ctx, "import_batch_rejected", "batch_id", batch.ID, "uploaded_by", batch.UploadedBy, "gate", gate)
	return stageResult(batch), gateErr
}

func (s *Service) recordAttempt(ctx context.Context, store Store, b *models.Batch, outcome models.AttemptOutcome, message string) error {
	err := store.RecordAttempt(ctx, &models.ImportAttempt{
		ID:         uuid.New(),
		BatchID:    b.ID,
		UploadedBy: b.UploadedBy,
		Checksum:   b.Checksum,
		Outcome:    outcome,
		Message:    message,
		CreatedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record import attempt")
	}
	return nil
}

// liveDuplicates looks every well-formed key up against the live roll in one
// query. Rows with format errors are checked too.
func liveDuplicates(ctx context.Context, store Store, rows []parser.Row) ([]models.RowError, error) {
	nationals := make([]string, 0, len(rows))
	cards := make([]string, 0, len(rows))
	for _, r := range rows {
		if parser.WellFormedNationalID(r.Voter.NationalID) {
			nationals = append(nationals, r.Voter.NationalID)
		}
		if parser.WellFormedCardNumber(r.Voter.CardNumber) {
			cards = append(cards, r.Voter.CardNumber)
		}
	}
	if len(nationals) == 0 && len(cards) == 0 {
		return nil, nil
	}
	live, err := store.FindLiveVoters(ctx, nationals, cards)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check the live roll")
	}
	if len(live) == 0 {
		return nil, nil
	}

	liveNationals := make(map[string]bool, len(live))
	liveCards := make(map[string]bool, len(live))
	for _, v := range live {
		liveNationals[v.NationalID] = true
		liveCards[v.CardNumber] = true
	}

	var errs []models.RowError
	for _, r := range rows {
		if liveNationals[r.Voter.NationalID] && parser.WellFormedNationalID(r.Voter.NationalID) {
			errs = append(errs, models.RowError{Row: r.Number, Field: parser.ColumnNationalID, Value: r.Voter.NationalID, Message: "voter already on the roll"})
		}
		if liveCards[r.Voter.CardNumber] && parser.WellFormedCardNumber(r.Voter.CardNumber) {
			errs = append(errs, models.RowError{Row: r.Number, Field: parser.ColumnCardNumber, Value: r.Voter.CardNumber, Message: "voter already on the roll"})
		}
	}
	return errs, nil
}

// mergeRowErrors combines format and live-roll errors ordered by row. Errors
// on the same row keep format errors first.
func mergeRowErrors(format, live []models.RowError) []models.RowError {
	if len(live) == 0 {
		return format
	}
	merged := make([]models.RowError, 0, len(format)+len(live))
	merged = append(merged, format...)
	merged = append(merged, live...)
	slices.SortStableFunc(merged, func(a, b models.RowError) int {
		return cmp.Compare(a.Row, b.Row)
	})
	return merged
}

// PromoteImportBatch copies a STAGED batch into the live roll. Only one
// promotion runs at a time, and none while another upload is being staged.
func (s *Service) PromoteImportBatch(ctx context.Context, batchID id.BatchID) (*models.Batch, error) {
	ctx, span := tracer.Start(ctx, "rollimport.promote", trace.WithAttributes(attribute.String("batch.id", batchID.String())))
	defer span.End()

	var (
		promoted *models.Batch
		count    int64
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		locked, err := store.TryLockImport(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to take the import lock")
		}
		if !locked {
			return dErrors.New(dErrors.CodeImportInProgress, "another import is being promoted")
		}

		b, err := findBatch(ctx, store.FindBatchForUpdate, batchID)
		if err != nil {
			return err
		}
		if _, err := rejectAbandoned(ctx, store, requestcontext.Now(ctx).Add(-s.pendingTimeout)); err != nil {
			return err
		}
		inFlight, err := store.CountBatches(ctx, models.BatchPending, b.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check imports in flight")
		}
		if inFlight > 0 {
			return dErrors.New(dErrors.CodeImportInProgress, "another import is being staged")
		}
		if err := b.CanPromote(); err != nil {
			return err
		}

		n, err := store.PromoteStaged(ctx, b.ID)
		if err != nil {
			if errors.Is(err, ledgerstore.ErrVoterExists) {
				return dErrors.New(dErrors.CodeConflict, "batch contains voters already on the roll")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote staged voters")
		}
		b.ApplyPromotion(requestcontext.Now(ctx))
		if err := store.UpdateBatch(ctx, b); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark batch promoted")
		}
		promoted, count = b, n
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to promote import batch")
	}

	s.metrics.IncrementBatch(string(models.BatchPromoted), "")
	s.metrics.AddPromoted(count)
	s.logAudit(ctx, "import_batch_promoted", "batch_id", batchID, "row_count", count)
	return promoted, nil
}

// RejectImportBatch discards a STAGED batch and its staging rows.
func (s *Service) RejectImportBatch(ctx context.Context, batchID id.BatchID) (*models.Batch, error) {
	var rejected *models.Batch
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		b, err := findBatch(ctx, store.FindBatchForUpdate, batchID)
		if err != nil {
			return err
		}
		if b.State != models.BatchStaged {
			return dErrors.Newf(dErrors.CodeInvalidState, "batch is %s", b.State)
		}
		if _, err := store.ClearStaged(ctx, b.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear staged voters")
		}
		if err := b.MarkRejected(nil, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := store.UpdateBatch(ctx, b); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject import batch")
		}
		rejected = b
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to reject import batch")
	}

	s.metrics.IncrementBatch(string(models.BatchRejected), "operator")
	s.logAudit(ctx, "import_batch_discarded", "batch_id", batchID)
	return rejected, nil
}

func (s *Service) GetBatch(ctx context.Context, batchID id.BatchID) (*models.Batch, error) {
	var b *models.Batch
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		found, err := findBatch(ctx, store.FindBatch, batchID)
		b = found
		return err
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to load import batch")
	}
	return b, nil
}

// ListAttempts returns uploadedBy's stage attempts, newest first.
func (s *Service) ListAttempts(ctx context.Context, uploadedBy string) ([]*models.ImportAttempt, error) {
	var attempts []*models.ImportAttempt
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		found, err := store.ListAttempts(ctx, uploadedBy)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list import attempts")
		}
		attempts = found
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to list import attempts")
	}
	return attempts, nil
}

// Cleanup rejects batches left PENDING longer than pendingTimeout, then deletes
// terminal batches and attempts older than retention.
func (s *Service) Cleanup(ctx context.Context, retention, pendingTimeout time.Duration) (CleanupResult, error) {
	ctx, span := tracer.Start(ctx, "rollimport.cleanup")
	defer span.End()

	if pendingTimeout <= 0 {
		pendingTimeout = DefaultPendingTimeout
	}
	now := requestcontext.Now(ctx)
	var result CleanupResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		abandoned, err := rejectAbandoned(ctx, store, now.Add(-pendingTimeout))
		if err != nil {
			return err
		}

		deletedBatches, err := store.DeleteTerminalBatchesBefore(ctx, now.Add(-retention))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete old batches")
		}
		deletedAttempts, err := store.DeleteAttemptsBefore(ctx, now.Add(-retention))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete old attempts")
		}
		result = CleanupResult{AbandonedBatches: abandoned, DeletedBatches: deletedBatches, DeletedAttempts: deletedAttempts}
		return nil
	})
	if err != nil {
		return CleanupResult{}, dErrors.Classify(err, "failed to clean up imports")
	}

	s.logAudit(ctx, "import_cleanup",
		"abandoned_batches", result.AbandonedBatches,
		"deleted_batches", result.DeletedBatches,
		"deleted_attempts", result.DeletedAttempts)
	return result, nil
}

// rejectAbandoned rejects batches still PENDING and untouched since cutoff.
// Their stage call died between recording the batch and finishing validation.
func rejectAbandoned(ctx context.Context, store Store, cutoff time.Time) (int, error) {
	stale, err := store.ListBatchesBefore(ctx, models.BatchPending, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list abandoned batches")
	}
	now := requestcontext.Now(ctx)
	for _, b := range stale {
		if err := b.MarkRejected([]models.RowError{{Row: 0, Message: "upload abandoned before validation finished"}}, now); err != nil {
			return 0, err
		}
		if err := store.UpdateBatch(ctx, b); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject abandoned batch")
		}
	}
	return len(stale), nil
}

func findBatch(ctx context.Context, find func(context.Context, id.BatchID) (*models.Batch, error), batchID id.BatchID) (*models.Batch, error) {
	b, err := find(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "import batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load import batch")
	}
	return b, nil
}

func stageResult(b *models.Batch) *models.StageResult {
	return &models.StageResult{
		BatchID:  b.ID,
		State:    b.State,
		RowCount: b.RowCount,
		Errors:   b.Errors,
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
