package models

import (
	"strings"
	"time"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

// ScopeKind selects the slice of the ledger a statistics view covers.
type ScopeKind string

const (
	ScopeGlobal    ScopeKind = "global"
	ScopePeriod    ScopeKind = "period"
	ScopeCandidate ScopeKind = "candidate"
	ScopeRegion    ScopeKind = "region"
)

// Scope is a parsed statistics scope such as "global" or "period:{id}".
type Scope struct {
	Kind        ScopeKind
	PeriodID    id.PeriodID
	CandidateID id.CandidateID
	Region      string
}

func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

func PeriodScope(periodID id.PeriodID) Scope {
	return Scope{Kind: ScopePeriod, PeriodID: periodID}
}

func CandidateScope(candidateID id.CandidateID) Scope {
	return Scope{Kind: ScopeCandidate, CandidateID: candidateID}
}

func RegionScope(region string) Scope {
	return Scope{Kind: ScopeRegion, Region: region}
}

// ParseScope parses the textual form produced by Scope.String.
func ParseScope(raw string) (Scope, error) {
	raw = strings.TrimSpace(raw)
	if raw == string(ScopeGlobal) {
		return GlobalScope(), nil
	}
	kind, value, ok := strings.Cut(raw, ":")
	if !ok || value == "" {
		return Scope{}, dErrors.Newf(dErrors.CodeValidation, "invalid statistics scope %q", raw)
	}
	switch ScopeKind(kind) {
	case ScopePeriod:
		periodID, err := id.ParsePeriodID(value)
		if err != nil {
			return Scope{}, dErrors.New(dErrors.CodeValidation, "invalid period in statistics scope")
		}
		return PeriodScope(periodID), nil
	case ScopeCandidate:
		candidateID, err := id.ParseCandidateID(value)
		if err != nil {
			return Scope{}, dErrors.New(dErrors.CodeValidation, "invalid candidate in statistics scope")
		}
		return CandidateScope(candidateID), nil
	case ScopeRegion:
		region := strings.TrimSpace(value)
		if region == "" {
			return Scope{}, dErrors.New(dErrors.CodeValidation, "region is required")
		}
		return RegionScope(region), nil
	default:
		return Scope{}, dErrors.Newf(dErrors.CodeValidation, "unknown statistics scope %q", kind)
	}
}

// String renders the canonical scope used in cache keys.
func (s Scope) String() string {
	switch s.Kind {
	case ScopePeriod:
		return string(ScopePeriod) + ":" + s.PeriodID.String()
	case ScopeCandidate:
		return string(ScopeCandidate) + ":" + s.CandidateID.String()
	case ScopeRegion:
		return string(ScopeRegion) + ":" + s.Region
	default:
		return string(ScopeGlobal)
	}
}

// CacheKey is the cache coordinator key for this scope.
func (s Scope) CacheKey() string {
	return "stats:" + s.String()
}

// Filter restricts aggregate queries. Zero fields do not filter.
type Filter struct {
	PeriodID    *id.PeriodID
	CandidateID *id.CandidateID
	Region      string
}

// Filter converts the scope into aggregate query filters.
func (s Scope) Filter() Filter {
	switch s.Kind {
	case ScopePeriod:
		p := s.PeriodID
		return Filter{PeriodID: &p}
	case ScopeCandidate:
		c := s.CandidateID
		return Filter{CandidateID: &c}
	case ScopeRegion:
		return Filter{Region: s.Region}
	default:
		return Filter{}
	}
}

// StatusCounts holds sponsorship counts by status.
type StatusCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Validated int64 `json:"validated"`
	Rejected  int64 `json:"rejected"`
}

// CandidateCount is one row of the per-candidate breakdown.
type CandidateCount struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	LastName    string         `json:"last_name"`
	FirstName   string         `json:"first_name"`
	Party       string         `json:"party"`
	Count       int64          `json:"count"`
}

// RegionCount is one row of the per-region breakdown.
type RegionCount struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}

// DailyCount is the number of sponsorships created on Date (UTC, YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatisticsView is the aggregate served for one scope.
type StatisticsView struct {
	Scope       string           `json:"scope"`
	Counts      StatusCounts     `json:"counts"`
	ByCandidate []CandidateCount `json:"by_candidate,omitempty"`
	ByRegion    []RegionCount    `json:"by_region,omitempty"`
	Daily       []DailyCount     `json:"daily"`
	ComputedAt  time.Time        `json:"computed_at"`
}
