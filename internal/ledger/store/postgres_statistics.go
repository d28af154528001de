package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	statsmodels "parrainage/internal/statistics/models"
	id "parrainage/pkg/domain"
)

// Breakdowns count live support only: REJECTED sponsorships appear in the
// status counts and nowhere else.
const liveStatus = `s.status <> 'REJECTED'`

// filterClause renders f as a WHERE fragment over sponsorships s joined to voters v.
func filterClause(f statsmodels.Filter, extra ...string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.PeriodID != nil {
		conds = append(conds, "s.period_id = "+next(uuid.UUID(*f.PeriodID)))
	}
	if f.CandidateID != nil {
		conds = append(conds, "s.candidate_id = "+next(uuid.UUID(*f.CandidateID)))
	}
	if f.Region != "" {
		conds = append(conds, "v.region = "+next(f.Region))
	}
	conds = append(conds, extra...)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Postgres) CountByStatus(ctx context.Context, f statsmodels.Filter) (statsmodels.StatusCounts, error) {
	where, args := filterClause(f)
	var c statsmodels.StatusCounts
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE s.status = 'PENDING'),
			count(*) FILTER (WHERE s.status = 'VALIDATED'),
			count(*) FILTER (WHERE s.status = 'REJECTED')
		FROM sponsorships s
		JOIN voters v ON v.id = s.voter_id`+where, args...).Scan(&c.Total, &c.Pending, &c.Validated, &c.Rejected)
	if err != nil {
		return statsmodels.StatusCounts{}, fmt.Errorf("count sponsorships by status: %w", err)
	}
	return c, nil
}

func (s *Postgres) CountByCandidate(ctx context.Context, f statsmodels.Filter) ([]statsmodels.CandidateCount, error) {
	where, args := filterClause(f, liveStatus)
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT c.id, c.last_name, c.first_name, c.party, count(*) AS n
		FROM sponsorships s
		JOIN voters v ON v.id = s.voter_id
		JOIN candidates c ON c.id = s.candidate_id`+where+`
		GROUP BY c.id, c.last_name, c.first_name, c.party
		ORDER BY n DESC, c.last_name, c.first_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("count sponsorships by candidate: %w", err)
	}
	defer rows.Close()

	out := []statsmodels.CandidateCount{}
	for rows.Next() {
		var (
			cc    statsmodels.CandidateCount
			rawID uuid.UUID
		)
		if err := rows.Scan(&rawID, &cc.LastName, &cc.FirstName, &cc.Party, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan candidate count: %w", err)
		}
		cc.CandidateID = id.CandidateID(rawID)
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate counts: %w", err)
	}
	return out, nil
}

func (s *Postgres) CountByRegion(ctx context.Context, f statsmodels.Filter) ([]statsmodels.RegionCount, error) {
	where, args := filterClause(f, liveStatus)
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT v.region, count(*) AS n
		FROM sponsorships s
		JOIN voters v ON v.id = s.voter_id`+where+`
		GROUP BY v.region
		ORDER BY n DESC, v.region`, args...)
	if err != nil {
		return nil, fmt.Errorf("count sponsorships by region: %w", err)
	}
	defer rows.Close()

	out := []statsmodels.RegionCount{}
	for rows.Next() {
		var rc statsmodels.RegionCount
		if err := rows.Scan(&rc.Region, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region counts: %w", err)
	}
	return out, nil
}

func (s *Postgres) CountByDay(ctx context.Context, f statsmodels.Filter) ([]statsmodels.DailyCount, error) {
	where, args := filterClause(f)
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT to_char(s.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM sponsorships s
		JOIN voters v ON v.id = s.voter_id`+where+`
		GROUP BY day
		ORDER BY day`, args...)
	if err != nil {
		return nil, fmt.Errorf("count sponsorships by day: %w", err)
	}
	defer rows.Close()

	out := []statsmodels.DailyCount{}
	for rows.Next() {
		var dc statsmodels.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return out, nil
}
