package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	periodmodels "parrainage/internal/period/models"
	id "parrainage/pkg/domain"
)

const periodColumns = `id, starts_at, ends_at, state, created_at, updated_at`

func (s *Postgres) CreatePeriod(ctx context.Context, p *periodmodels.Period) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO periods (`+periodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(p.ID), p.Start, p.End, string(p.State), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert period: %w", err)
	}
	return nil
}

func (s *Postgres) FindPeriod(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error) {
	return s.findPeriod(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1`, periodID)
}

func (s *Postgres) FindPeriodForUpdate(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error) {
	return s.findPeriod(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1 FOR UPDATE`, periodID)
}

func (s *Postgres) findPeriod(ctx context.Context, query string, periodID id.PeriodID) (*periodmodels.Period, error) {
	p, err := scanPeriod(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(periodID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find period: %w", err)
	}
	return p, nil
}

func (s *Postgres) UpdatePeriod(ctx context.Context, p *periodmodels.Period) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE periods SET state = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(p.ID), string(p.State), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update period rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListOpenPeriods(ctx context.Context) ([]*periodmodels.Period, error) {
	return s.listPeriods(ctx, `
		SELECT `+periodColumns+` FROM periods WHERE state = 'OPEN' ORDER BY starts_at
	`)
}

func (s *Postgres) FindOverlappingPeriod(ctx context.Context, start, end time.Time) (*periodmodels.Period, error) {
	p, err := scanPeriod(s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+periodColumns+` FROM periods
		WHERE state <> 'TERMINATED' AND starts_at < $2 AND $1 < ends_at
		ORDER BY starts_at
		LIMIT 1
	`, start, end))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find overlapping period: %w", err)
	}
	return p, nil
}

// LockWindowPeriod takes FOR SHARE on the open-window row. A concurrent close
// holds FOR UPDATE on the same row, so creation and close are ordered: a close
// that commits first makes this query re-check the row and find nothing.
func (s *Postgres) LockWindowPeriod(ctx context.Context, now time.Time) (*periodmodels.Period, error) {
	p, err := scanPeriod(s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+periodColumns+` FROM periods
		WHERE state = 'OPEN' AND starts_at <= $1 AND $1 < ends_at
		ORDER BY starts_at
		LIMIT 1
		FOR SHARE
	`, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock window period: %w", err)
	}
	return p, nil
}

func (s *Postgres) LockPeriodTransitions(ctx context.Context) error {
	if _, err := s.exec(ctx).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockPeriodTransitions); err != nil {
		return fmt.Errorf("lock period transitions: %w", err)
	}
	return nil
}

func (s *Postgres) listPeriods(ctx context.Context, query string, args ...any) ([]*periodmodels.Period, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var periods []*periodmodels.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (*periodmodels.Period, error) {
	var (
		p       periodmodels.Period
		rawID   uuid.UUID
		rawStat string
	)
	if err := row.Scan(&rawID, &p.Start, &p.End, &rawStat, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.PeriodID(rawID)
	p.State = periodmodels.State(rawStat)
	return &p, nil
}
