package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	eventmetrics "parrainage/internal/events/metrics"
)

// ErrSourceClosed is returned by a Source whose connection has been closed.
var ErrSourceClosed = errors.New("event source closed")

// Source yields messages from the broker.
type Source interface {
	Poll(ctx context.Context) ([]Message, error)
}

// Consumer feeds broker messages to a handler, typically the same handlers the
// in-process bus serves, so that processes which did not perform a write still
// react to it.
type Consumer struct {
	source  Source
	handler Handler
	logger  *slog.Logger
	metrics *eventmetrics.Metrics
}

func NewConsumer(source Source, handler Handler, logger *slog.Logger, m *eventmetrics.Metrics) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{source: source, handler: handler, logger: logger, metrics: m}
}

// Run polls until ctx ends or the source closes. Undecodable messages and
// handler failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msgs, err := c.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSourceClosed) {
				return nil
			}
			return fmt.Errorf("poll events: %w", err)
		}
		for _, m := range msgs {
			evt, err := Decode(m.Value)
			if err != nil {
				c.logger.WarnContext(ctx, "dropping undecodable event", "key", m.Key, "error", err)
				continue
			}
			c.metrics.IncrementConsumed(string(evt.Type))
			if err := c.handler.HandleEvent(ctx, evt); err != nil {
				c.logger.WarnContext(ctx, "event handler failed",
					"event_id", evt.ID,
					"event_type", evt.Type,
					"error", err,
				)
			}
		}
	}
}
