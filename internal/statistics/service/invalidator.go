package service

import (
	"context"
	"errors"

	"parrainage/internal/events"
	"parrainage/internal/statistics/models"
)

// KeyInvalidator drops cached entries.
type KeyInvalidator interface {
	Invalidate(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// statsPrefix matches every cached statistics view.
const statsPrefix = "stats:"

// Invalidator drops the statistics views a sponsorship event changes.
type Invalidator struct {
	cache KeyInvalidator
}

func NewInvalidator(c KeyInvalidator) *Invalidator {
	return &Invalidator{cache: c}
}

// HandleEvent implements events.Handler.
func (i *Invalidator) HandleEvent(ctx context.Context, evt events.Event) error {
	keys, wholeRange := AffectedKeys(evt)
	if wholeRange {
		return i.cache.InvalidatePrefix(ctx, statsPrefix)
	}
	var errs []error
	for _, key := range keys {
		if err := i.cache.Invalidate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AffectedKeys lists the cache keys evt makes stale. A period-wide rejection
// touches candidates and regions it does not name, so wholeRange is true and
// every statistics view must go.
func AffectedKeys(evt events.Event) (keys []string, wholeRange bool) {
	if evt.SponsorshipID.IsNil() {
		return nil, true
	}
	keys = []string{
		models.GlobalScope().CacheKey(),
		models.PeriodScope(evt.PeriodID).CacheKey(),
		models.CandidateScope(evt.CandidateID).CacheKey(),
	}
	if evt.Region != "" {
		keys = append(keys, models.RegionScope(evt.Region).CacheKey())
	}
	return keys, false
}
