package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"parrainage/internal/platform/postgres"
	rollmodels "parrainage/internal/rollimport/models"
	id "parrainage/pkg/domain"
)

const (
	batchColumns   = `id, checksum, encoding, state, row_count, errors, uploaded_by, created_at, updated_at`
	voterColumns   = `id, national_id, card_number, last_name, first_name, region, polling_station`
	attemptColumns = `id, batch_id, uploaded_by, checksum, outcome, message, created_at`

	// stageChunkSize bounds the array parameters of one staging insert.
	stageChunkSize = 5000
)

func (s *Postgres) CreateBatch(ctx context.Context, b *rollmodels.Batch) error {
	rowErrors, err := marshalRowErrors(b.Errors)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx).ExecContext(ctx, `
		INSERT INTO import_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(b.ID), b.Checksum, string(b.Encoding), string(b.State), b.RowCount, rowErrors, b.UploadedBy, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

func (s *Postgres) FindBatch(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error) {
	return s.findBatch(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, batchID)
}

func (s *Postgres) FindBatchForUpdate(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error) {
	return s.findBatch(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1 FOR UPDATE`, batchID)
}

func (s *Postgres) findBatch(ctx context.Context, query string, batchID id.BatchID) (*rollmodels.Batch, error) {
	b, err := scanBatch(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(batchID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find import batch: %w", err)
	}
	return b, nil
}

func (s *Postgres) UpdateBatch(ctx context.Context, b *rollmodels.Batch) error {
	rowErrors, err := marshalRowErrors(b.Errors)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE import_batches
		SET state = $2, row_count = $3, errors = $4, updated_at = $5
		WHERE id = $1
	`, uuid.UUID(b.ID), string(b.State), b.RowCount, rowErrors, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update import batch: %w", err)
	}
	ok, err := affected(res, "update import batch")
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountBatches(ctx context.Context, state rollmodels.BatchState, exclude id.BatchID) (int, error) {
	var n int
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT count(*) FROM import_batches WHERE state = $1 AND id <> $2
	`, string(state), uuid.UUID(exclude)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count import batches: %w", err)
	}
	return n, nil
}

func (s *Postgres) ListBatchesBefore(ctx context.Context, state rollmodels.BatchState, cutoff time.Time) ([]*rollmodels.Batch, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+batchColumns+` FROM import_batches
		WHERE state = $1 AND updated_at < $2
		ORDER BY created_at
	`, string(state), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	var batches []*rollmodels.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import batches: %w", err)
	}
	return batches, nil
}

func (s *Postgres) DeleteTerminalBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		DELETE FROM import_batches
		WHERE state IN ('PROMOTED', 'REJECTED') AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete import batches: %w", err)
	}
	return res.RowsAffected()
}

// TryLockImport uses a transaction-scoped advisory lock so a crashed promoter
// releases it with its connection.
func (s *Postgres) TryLockImport(ctx context.Context) (bool, error) {
	var locked bool
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockImportPromotion).Scan(&locked); err != nil {
		return false, fmt.Errorf("lock import: %w", err)
	}
	return locked, nil
}

// FindLiveVoters looks up every candidate key in one round trip.
func (s *Postgres) FindLiveVoters(ctx context.Context, nationalIDs, cardNumbers []string) ([]*rollmodels.Voter, error) {
	if len(nationalIDs) == 0 && len(cardNumbers) == 0 {
		return nil, nil
	}
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+voterColumns+` FROM voters
		WHERE national_id = ANY($1) OR card_number = ANY($2)
	`, pq.Array(nationalIDs), pq.Array(cardNumbers))
	if err != nil {
		return nil, fmt.Errorf("find live voters: %w", err)
	}
	defer rows.Close()

	var voters []*rollmodels.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voters: %w", err)
	}
	return voters, nil
}

func (s *Postgres) PutVoter(ctx context.Context, v *rollmodels.Voter) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO voters (`+voterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(v.ID), v.NationalID, v.CardNumber, v.LastName, v.FirstName, v.Region, v.PollingStation)
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok &&
			(constraint == constraintVoterNationalID || constraint == constraintVoterCardNumber) {
			return ErrVoterExists
		}
		return fmt.Errorf("insert voter: %w", err)
	}
	return nil
}

// StageVoters inserts rows with array parameters, one statement per chunk.
func (s *Postgres) StageVoters(ctx context.Context, rows []rollmodels.StagedVoter) error {
	for start := 0; start < len(rows); start += stageChunkSize {
		end := min(start+stageChunkSize, len(rows))
		if err := s.stageChunk(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) stageChunk(ctx context.Context, rows []rollmodels.StagedVoter) error {
	var (
		batchIDs    = make([]string, len(rows))
		rowNumbers  = make([]int64, len(rows))
		voterIDs    = make([]string, len(rows))
		nationalIDs = make([]string, len(rows))
		cards       = make([]string, len(rows))
		lastNames   = make([]string, len(rows))
		firstNames  = make([]string, len(rows))
		regions     = make([]string, len(rows))
		stations    = make([]string, len(rows))
	)
	for i, r := range rows {
		batchIDs[i] = r.BatchID.String()
		rowNumbers[i] = int64(r.Row)
		voterIDs[i] = r.ID.String()
		nationalIDs[i] = r.NationalID
		cards[i] = r.CardNumber
		lastNames[i] = r.LastName
		firstNames[i] = r.FirstName
		regions[i] = r.Region
		stations[i] = r.PollingStation
	}
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO voter_staging (
			batch_id, row_number, voter_id, national_id, card_number,
			last_name, first_name, region, polling_station
		)
		SELECT * FROM unnest(
			$1::uuid[], $2::int[], $3::uuid[], $4::text[], $5::text[],
			$6::text[], $7::text[], $8::text[], $9::text[]
		)
	`,
		pq.Array(batchIDs),
		pq.Array(rowNumbers),
		pq.Array(voterIDs),
		pq.Array(nationalIDs),
		pq.Array(cards),
		pq.Array(lastNames),
		pq.Array(firstNames),
		pq.Array(regions),
		pq.Array(stations),
	)
	if err != nil {
		return fmt.Errorf("stage voters: %w", err)
	}
	return nil
}

func (s *Postgres) CountStaged(ctx context.Context, batchID id.BatchID) (int, error) {
	var n int
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT count(*) FROM voter_staging WHERE batch_id = $1
	`, uuid.UUID(batchID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staged voters: %w", err)
	}
	return n, nil
}

// PromoteStaged must run inside a transaction: a unique violation on the live
// roll aborts it and leaves staging untouched.
func (s *Postgres) PromoteStaged(ctx context.Context, batchID id.BatchID) (int64, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO voters (`+voterColumns+`)
		SELECT voter_id, national_id, card_number, last_name, first_name, region, polling_station
		FROM voter_staging
		WHERE batch_id = $1
		ORDER BY row_number
	`, uuid.UUID(batchID))
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok &&
			(constraint == constraintVoterNationalID || constraint == constraintVoterCardNumber) {
			return 0, ErrVoterExists
		}
		return 0, fmt.Errorf("promote staged voters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("promote rows affected: %w", err)
	}
	if _, err := s.ClearStaged(ctx, batchID); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Postgres) ClearStaged(ctx context.Context, batchID id.BatchID) (int64, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM voter_staging WHERE batch_id = $1`, uuid.UUID(batchID))
	if err != nil {
		return 0, fmt.Errorf("clear staged voters: %w", err)
	}
	return res.RowsAffected()
}

func (s *Postgres) RecordAttempt(ctx context.Context, a *rollmodels.ImportAttempt) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO import_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, uuid.UUID(a.BatchID), a.UploadedBy, a.Checksum, string(a.Outcome), a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert import attempt: %w", err)
	}
	return nil
}

func (s *Postgres) ListAttempts(ctx context.Context, uploadedBy string) ([]*rollmodels.ImportAttempt, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+attemptColumns+` FROM import_attempts
		WHERE uploaded_by = $1
		ORDER BY created_at DESC
	`, uploadedBy)
	if err != nil {
		return nil, fmt.Errorf("list import attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*rollmodels.ImportAttempt
	for rows.Next() {
		var (
			a        rollmodels.ImportAttempt
			rawBatch uuid.UUID
			outcome  string
		)
		if err := rows.Scan(&a.ID, &rawBatch, &a.UploadedBy, &a.Checksum, &outcome, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import attempt: %w", err)
		}
		a.BatchID = id.BatchID(rawBatch)
		a.Outcome = rollmodels.AttemptOutcome(outcome)
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import attempts: %w", err)
	}
	return attempts, nil
}

func (s *Postgres) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM import_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete import attempts: %w", err)
	}
	return res.RowsAffected()
}

func scanBatch(row rowScanner) (*rollmodels.Batch, error) {
	var (
		b         rollmodels.Batch
		rawID     uuid.UUID
		encoding  string
		state     string
		rowErrors []byte
	)
	if err := row.Scan(&rawID, &b.Checksum, &encoding, &state, &b.RowCount, &rowErrors, &b.UploadedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BatchID(rawID)
	b.Encoding = rollmodels.Encoding(encoding)
	b.State = rollmodels.BatchState(state)
	b.Errors = []rollmodels.RowError{}
	if len(rowErrors) > 0 {
		if err := json.Unmarshal(rowErrors, &b.Errors); err != nil {
			return nil, fmt.Errorf("decode row errors: %w", err)
		}
	}
	return &b, nil
}

func scanVoter(row rowScanner) (*rollmodels.Voter, error) {
	var (
		v     rollmodels.Voter
		rawID uuid.UUID
	)
	if err := row.Scan(&rawID, &v.NationalID, &v.CardNumber, &v.LastName, &v.FirstName, &v.Region, &v.PollingStation); err != nil {
		return nil, err
	}
	v.ID = id.VoterID(rawID)
	return &v, nil
}

func marshalRowErrors(errs []rollmodels.RowError) (string, error) {
	if errs == nil {
		errs = []rollmodels.RowError{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("encode row errors: %w", err)
	}
	return string(b), nil
}
