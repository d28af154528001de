// Package kafka connects the event relay and consumer to a Kafka cluster.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"parrainage/internal/events"
	"parrainage/internal/platform/config"
	pstrings "parrainage/pkg/platform/strings"
)

// Client produces and consumes events on one topic.
type Client struct {
	cl     *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the configured brokers. It returns nil when Kafka is disabled.
//
// Without a consumer group every process reads the whole topic from its end,
// which is what cache invalidation needs.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Client, error) {
	cfg.Brokers = pstrings.DedupeAndTrim(cfg.Brokers)
	if !cfg.Enabled() {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID("parrainage"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if cfg.ConsumerGroup != "" {
		opts = append(opts, kgo.ConsumerGroup(cfg.ConsumerGroup))
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	c := &Client{cl: cl, topic: cfg.Topic, logger: logger}
	if err := c.EnsureTopic(ctx, cfg.Partitions); err != nil {
		cl.Close()
		return nil, err
	}
	return c, nil
}

// EnsureTopic creates the topic unless it already exists.
func (c *Client) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(c.cl)
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, c.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", c.topic, err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Send produces msgs and waits for every acknowledgement.
func (c *Client) Send(ctx context.Context, msgs ...events.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		rec := &kgo.Record{Topic: c.topic, Key: []byte(m.Key), Value: m.Value}
		for k, v := range m.Headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
		records = append(records, rec)
	}
	if err := c.cl.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", c.topic, err)
	}
	return nil
}

// Poll blocks until records arrive or ctx ends. Fetch errors are logged and
// skipped; only a closed client or ended context stops the caller.
func (c *Client) Poll(ctx context.Context) ([]events.Message, error) {
	fetches := c.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, events.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fetches.EachError(func(topic string, partition int32, err error) {
		c.logger.WarnContext(ctx, "kafka fetch failed", "topic", topic, "partition", partition, "error", err)
	})

	var msgs []events.Message
	fetches.EachRecord(func(rec *kgo.Record) {
		m := events.Message{Key: string(rec.Key), Value: rec.Value}
		if len(rec.Headers) > 0 {
			m.Headers = make(map[string]string, len(rec.Headers))
			for _, h := range rec.Headers {
				m.Headers[h.Key] = string(h.Value)
			}
		}
		msgs = append(msgs, m)
	})
	return msgs, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.cl.Ping(ctx)
}

func (c *Client) Close() {
	c.cl.Close()
}
