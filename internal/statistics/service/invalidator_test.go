package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"parrainage/internal/events"
	"parrainage/internal/statistics/service"
	"parrainage/internal/statistics/service/mocks"
	id "parrainage/pkg/domain"
)

//go:generate mockgen -source=invalidator.go -destination=mocks/mocks.go -package=mocks KeyInvalidator

func sponsorshipEvent(t events.Type, region string) events.Event {
	evt := events.New(t, id.PeriodID(uuid.New()), time.Now())
	evt.SponsorshipID = id.SponsorshipID(uuid.New())
	evt.VoterID = id.VoterID(uuid.New())
	evt.CandidateID = id.CandidateID(uuid.New())
	evt.Region = region
	return evt
}

func TestAffectedKeys(t *testing.T) {
	t.Run("sponsorship event names its scopes", func(t *testing.T) {
		evt := sponsorshipEvent(events.SponsorshipCreated, "Dakar")
		keys, whole := service.AffectedKeys(evt)
		assert.False(t, whole)
		assert.Equal(t, []string{
			"stats:global",
			"stats:period:" + evt.PeriodID.String(),
			"stats:candidate:" + evt.CandidateID.String(),
			"stats:region:Dakar",
		}, keys)
	})

	t.Run("unknown region is skipped", func(t *testing.T) {
		keys, _ := service.AffectedKeys(sponsorshipEvent(events.SponsorshipWithdrawn, ""))
		assert.Len(t, keys, 3)
	})

	t.Run("period-wide rejection covers every view", func(t *testing.T) {
		evt := events.New(events.SponsorshipRejected, id.PeriodID(uuid.New()), time.Now())
		evt.Count = 12
		keys, whole := service.AffectedKeys(evt)
		assert.True(t, whole)
		assert.Empty(t, keys)
	})
}

func TestInvalidatorHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("drops each affected key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockKeyInvalidator(ctrl)
		evt := sponsorshipEvent(events.SponsorshipValidated, "Thies")
		cache.EXPECT().Invalidate(gomock.Any(), gomock.Any()).Return(nil).Times(4)

		assert.NoError(t, service.NewInvalidator(cache).HandleEvent(ctx, evt))
	})

	t.Run("keeps going after a failed key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockKeyInvalidator(ctrl)
		down := errors.New("redis down")
		evt := sponsorshipEvent(events.SponsorshipCreated, "")
		cache.EXPECT().Invalidate(gomock.Any(), "stats:global").Return(down)
		cache.EXPECT().Invalidate(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		err := service.NewInvalidator(cache).HandleEvent(ctx, evt)
		assert.ErrorIs(t, err, down)
	})

	t.Run("period-wide rejection clears the prefix", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockKeyInvalidator(ctrl)
		cache.EXPECT().InvalidatePrefix(gomock.Any(), "stats:").Return(nil)

		evt := events.New(events.SponsorshipRejected, id.PeriodID(uuid.New()), time.Now())
		assert.NoError(t, service.NewInvalidator(cache).HandleEvent(ctx, evt))
	})
}
