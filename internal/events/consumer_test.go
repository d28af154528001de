package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"parrainage/internal/events"
	"parrainage/internal/events/mocks"
	id "parrainage/pkg/domain"
)

//go:generate mockgen -source=consumer.go -destination=mocks/consumer-mocks.go -package=mocks Source

func TestConsumerFeedsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)

	evt := events.New(events.SponsorshipCreated, id.PeriodID(uuid.New()), time.Now().UTC())
	payload, err := evt.Encode()
	require.NoError(t, err)

	gomock.InOrder(
		source.EXPECT().Poll(gomock.Any()).Return([]events.Message{
			{Key: evt.PeriodID.String(), Value: []byte("not json")},
			{Key: evt.PeriodID.String(), Value: payload},
		}, nil),
		source.EXPECT().Poll(gomock.Any()).Return(nil, events.ErrSourceClosed),
	)

	var seen []uuid.UUID
	handler := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		seen = append(seen, e.ID)
		return errors.New("handler errors do not stop the consumer")
	})

	err = events.NewConsumer(source, handler, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{evt.ID}, seen)
}

func TestConsumerReturnsPollErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	source.EXPECT().Poll(gomock.Any()).Return(nil, errors.New("auth failed"))

	err := events.NewConsumer(source, events.HandlerFunc(func(context.Context, events.Event) error { return nil }), nil, nil).
		Run(context.Background())
	assert.ErrorContains(t, err, "auth failed")
}

func TestBusAsConsumerHandler(t *testing.T) {
	bus := events.NewBus(nil)
	var got []events.Type
	bus.Subscribe(events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = append(got, e.Type)
		return nil
	}))

	evt := events.New(events.SponsorshipRejected, id.PeriodID(uuid.New()), time.Now())
	require.NoError(t, bus.HandleEvent(context.Background(), evt))
	assert.Equal(t, []events.Type{events.SponsorshipRejected}, got)
}
