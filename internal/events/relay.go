package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	eventmetrics "parrainage/internal/events/metrics"
	"parrainage/pkg/requestcontext"
)

// Message is one event as carried by the broker.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Sink delivers messages to the broker.
type Sink interface {
	Send(ctx context.Context, msgs ...Message) error
}

// OutboxStore is the ledger surface the relay reads and marks.
type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxTxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store OutboxStore) error) error
}

const (
	DefaultRelayInterval = time.Second
	DefaultRelayBatch    = 100
)

// Relay forwards committed outbox rows to the broker, oldest first. Rows are
// marked published in the transaction that locked them, so a crash between
// send and commit produces a duplicate rather than a loss.
type Relay struct {
	tx       OutboxTxRunner
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *eventmetrics.Metrics
}

type RelayOption func(*Relay)

func WithRelayInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRelayBatch(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *eventmetrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(tx OutboxTxRunner, sink Sink, opts ...RelayOption) *Relay {
	r := &Relay{
		tx:       tx,
		sink:     sink,
		interval: DefaultRelayInterval,
		batch:    DefaultRelayBatch,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
				r.metrics.IncrementRelayError()
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// Drain relays batches until the outbox has no unpublished rows left.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.RelayOnce(ctx)
		total += n
		if err != nil || n < r.batch {
			return total, err
		}
	}
}

// RelayOnce sends one batch and reports how many rows it published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var sent int
	err := r.tx.RunInTx(ctx, func(ctx context.Context, store OutboxStore) error {
		entries, err := store.FetchUnpublished(ctx, r.batch)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		r.metrics.SetBacklog(len(entries))
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]Message, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, Message{
				Key:   e.AggregateID,
				Value: e.Payload,
				Headers: map[string]string{
					"event_id":       e.ID.String(),
					"event_type":     string(e.EventType),
					"aggregate_type": e.AggregateType,
				},
			})
			ids = append(ids, e.ID)
		}
		if err := r.sink.Send(ctx, msgs...); err != nil {
			return fmt.Errorf("send outbox batch: %w", err)
		}
		if err := store.MarkPublished(ctx, ids, requestcontext.Now(ctx)); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		sent = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.AddRelayed(sent)
	return sent, nil
}

// Prune deletes rows published before cutoff.
func (r *Relay) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.tx.RunInTx(ctx, func(ctx context.Context, store OutboxStore) error {
		var err error
		n, err = store.DeletePublishedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return n, nil
}
