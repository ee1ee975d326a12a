package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "carteret/pkg/domain-errors"
)

const relayBatchSize = 100

// OutboxStore is the full audit outbox. Enqueue is the hot path; the relay
// drains with FetchUnpublished and acknowledges with MarkPublished.
// Implementations live in the store subpackage.
type OutboxStore interface {
	OutboxWriter
	FetchUnpublished(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Relay drains the audit outbox into a Kafka topic. Delivery is at least
// once: events are marked published only after the broker acknowledges the
// whole batch, so a crash between produce and mark re-sends.
type Relay struct {
	client *kgo.Client
	outbox OutboxStore
	topic  string
	period time.Duration
	logger *slog.Logger
}

// NewRelay connects to the brokers and ensures the topic exists.
func NewRelay(ctx context.Context, brokers []string, topic string, period time.Duration, outbox OutboxStore, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create kafka client")
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to ensure audit topic")
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, dErrors.Wrap(resp.Err, dErrors.CodeUpstream, "failed to ensure audit topic")
	}

	return &Relay{
		client: client,
		outbox: outbox,
		topic:  topic,
		period: period,
		logger: logger,
	}, nil
}

// Run drains the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.Error("audit relay drain failed", "error", err)
			}
		}
	}
}

// Close flushes buffered records and releases the client.
func (r *Relay) Close() {
	r.client.Close()
}

func (r *Relay) drain(ctx context.Context) error {
	events, err := r.outbox.FetchUnpublished(ctx, relayBatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit event")
		}
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(event.SubjectID),
			Value: payload,
		})
	}

	results := r.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to produce audit events")
	}

	ids := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return err
	}

	r.logger.Debug("audit events relayed", "count", len(events))
	return nil
}
