package models

import (
	"time"

	"github.com/google/uuid"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

// BatchState is the lifecycle state of a roll import batch.
type BatchState string

const (
	BatchPending  BatchState = "PENDING"
	BatchStaged   BatchState = "STAGED"
	BatchPromoted BatchState = "PROMOTED"
	BatchRejected BatchState = "REJECTED"
)

// IsTerminal reports whether no further transition is possible.
func (s BatchState) IsTerminal() bool {
	return s == BatchPromoted || s == BatchRejected
}

// Encoding names a declared text encoding for an uploaded roll.
type Encoding string

const (
	EncodingUTF8        Encoding = "UTF-8"
	EncodingISO88591    Encoding = "ISO-8859-1"
	EncodingWindows1252 Encoding = "WINDOWS-1252"
)

// RowError is one validation failure. Row is 1-based over data rows; row 0
// refers to the header.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Batch is one uploaded electoral roll.
//
// Invariants:
//   - PENDING -> STAGED -> {PROMOTED | REJECTED}; PENDING -> REJECTED on a failed gate
//   - A REJECTED batch never has staged rows
//   - PROMOTED and REJECTED are terminal
type Batch struct {
	ID         id.BatchID `json:"id"`
	Checksum   string     `json:"checksum"`
	Encoding   Encoding   `json:"encoding"`
	State      BatchState `json:"state"`
	RowCount   int        `json:"row_count"`
	Errors     []RowError `json:"errors"`
	UploadedBy string     `json:"uploaded_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewBatch builds a PENDING batch.
func NewBatch(batchID id.BatchID, checksum string, encoding Encoding, uploadedBy string, now time.Time) *Batch {
	return &Batch{
		ID:         batchID,
		Checksum:   checksum,
		Encoding:   encoding,
		State:      BatchPending,
		Errors:     []RowError{},
		UploadedBy: uploadedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkStaged records a clean validation of rowCount rows.
func (b *Batch) MarkStaged(rowCount int, now time.Time) error {
	if b.State != BatchPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "batch is %s", b.State)
	}
	b.State = BatchStaged
	b.RowCount = rowCount
	b.UpdatedAt = now
	return nil
}

// MarkRejected moves a non-terminal batch to REJECTED, keeping errs.
func (b *Batch) MarkRejected(errs []RowError, now time.Time) error {
	if b.State.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "batch is %s", b.State)
	}
	b.State = BatchRejected
	if errs != nil {
		b.Errors = errs
	}
	b.UpdatedAt = now
	return nil
}

// CanPromote checks the STAGED -> PROMOTED transition.
func (b *Batch) CanPromote() error {
	if b.State != BatchStaged {
		return dErrors.Newf(dErrors.CodeInvalidState, "batch is %s", b.State)
	}
	return nil
}

// ApplyPromotion marks the batch PROMOTED. Call CanPromote first.
func (b *Batch) ApplyPromotion(now time.Time) {
	b.State = BatchPromoted
	b.UpdatedAt = now
}

// AttemptOutcome is the result recorded for an upload attempt.
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "SUCCESS"
	AttemptError   AttemptOutcome = "ERROR"
)

// ImportAttempt is the audit trail of one stage call.
type ImportAttempt struct {
	ID         uuid.UUID      `json:"id"`
	BatchID    id.BatchID     `json:"batch_id"`
	UploadedBy string         `json:"uploaded_by"`
	Checksum   string         `json:"checksum"`
	Outcome    AttemptOutcome `json:"outcome"`
	Message    string         `json:"message"`
	CreatedAt  time.Time      `json:"created_at"`
}

// StageResult is returned by a stage call. Errors is empty when the batch was staged.
type StageResult struct {
	BatchID  id.BatchID `json:"batch_id"`
	State    BatchState `json:"state"`
	RowCount int        `json:"row_count"`
	Errors   []RowError `json:"errors"`
}
