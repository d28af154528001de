// Package events carries sponsorship domain events from the ledger to every
// consumer that derives state from it.
//
// Services append events to the ledger outbox inside their transaction and hand
// the same events to a Publisher once the transaction commits. The in-process
// Bus dispatches them to local subscribers; the Relay forwards committed outbox
// rows to Kafka so that other processes see them too.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "parrainage/pkg/domain"
)

// Type names a sponsorship domain event.
type Type string

const (
	SponsorshipCreated   Type = "sponsorship.created"
	SponsorshipWithdrawn Type = "sponsorship.withdrawn"
	SponsorshipValidated Type = "sponsorship.validated"
	SponsorshipRejected  Type = "sponsorship.rejected"
)

func (t Type) IsValid() bool {
	switch t {
	case SponsorshipCreated, SponsorshipWithdrawn, SponsorshipValidated, SponsorshipRejected:
		return true
	}
	return false
}

// Event is one committed ledger change. Rejections caused by a period close are
// emitted once per period with Count set to the number of rejected sponsorships.
type Event struct {
	ID            uuid.UUID        `json:"id"`
	Type          Type             `json:"type"`
	SponsorshipID id.SponsorshipID `json:"sponsorship_id"`
	VoterID       id.VoterID       `json:"voter_id"`
	CandidateID   id.CandidateID   `json:"candidate_id"`
	PeriodID      id.PeriodID      `json:"period_id"`
	Region        string           `json:"region,omitempty"`
	Count         int64            `json:"count,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// New stamps a fresh event ID and time.
func New(t Type, periodID id.PeriodID, now time.Time) Event {
	return Event{ID: uuid.New(), Type: t, PeriodID: periodID, OccurredAt: now}
}

// AggregateID is the partitioning key for the event.
func (e Event) AggregateID() string {
	return e.PeriodID.String()
}

// Encode renders the event payload stored in the outbox and sent to Kafka.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// Decode parses a payload produced by Encode.
func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if !e.Type.IsValid() {
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	return e, nil
}

// OutboxEntry is a committed event awaiting relay.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     Type
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// AggregateSponsorship is the aggregate type recorded for sponsorship events.
const AggregateSponsorship = "sponsorship"

// NewOutboxEntry wraps e for the outbox table.
func NewOutboxEntry(e Event) (OutboxEntry, error) {
	payload, err := e.Encode()
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{
		ID:            e.ID,
		AggregateType: AggregateSponsorship,
		AggregateID:   e.AggregateID(),
		EventType:     e.Type,
		Payload:       payload,
		CreatedAt:     e.OccurredAt,
	}, nil
}

// OutboxWriter persists events inside the caller's transaction.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, entries ...OutboxEntry) error
}

// Record appends evts to the outbox through w.
func Record(ctx context.Context, w OutboxWriter, evts ...Event) error {
	if len(evts) == 0 {
		return nil
	}
	entries := make([]OutboxEntry, 0, len(evts))
	for _, e := range evts {
		entry, err := NewOutboxEntry(e)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := w.AppendOutbox(ctx, entries...); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}
