package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "parrainage/pkg/domain"
)

func TestBusDispatch(t *testing.T) {
	bus := NewBus(nil)
	periodID := id.PeriodID(uuid.New())

	var created, every []Type
	bus.Subscribe(HandlerFunc(func(_ context.Context, evt Event) error {
		created = append(created, evt.Type)
		return nil
	}), SponsorshipCreated)
	bus.Subscribe(HandlerFunc(func(_ context.Context, evt Event) error {
		every = append(every, evt.Type)
		return errors.New("handler failures are swallowed")
	}))

	bus.Publish(context.Background(),
		New(SponsorshipCreated, periodID, time.Now()),
		New(SponsorshipRejected, periodID, time.Now()),
	)

	assert.Equal(t, []Type{SponsorshipCreated}, created)
	assert.Equal(t, []Type{SponsorshipCreated, SponsorshipRejected}, every)
}

func TestEncodeDecode(t *testing.T) {
	evt := New(SponsorshipWithdrawn, id.PeriodID(uuid.New()), time.Now().UTC().Truncate(time.Millisecond))
	evt.VoterID = id.VoterID(uuid.New())
	evt.Region = "Kaolack"

	b, err := evt.Encode()
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, evt, got)

	_, err = Decode([]byte(`{"type":"ballot.cast"}`))
	assert.Error(t, err)
}

func TestNewOutboxEntry(t *testing.T) {
	evt := New(SponsorshipCreated, id.PeriodID(uuid.New()), time.Now())
	entry, err := NewOutboxEntry(evt)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, entry.ID)
	assert.Equal(t, AggregateSponsorship, entry.AggregateType)
	assert.Equal(t, evt.PeriodID.String(), entry.AggregateID)
	assert.Nil(t, entry.PublishedAt)
}
