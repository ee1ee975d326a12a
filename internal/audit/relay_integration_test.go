//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"carteret/internal/audit"
	"carteret/internal/audit/store"
	"carteret/internal/platform/logger"
	id "carteret/pkg/domain"
)

// TestRelayDeliversAndAcks runs the relay against a real broker: enqueued
// events must arrive on the topic and be marked published afterwards.
func TestRelayDeliversAndAcks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.1")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("failed to get seed broker: %v", err)
	}

	outbox := store.NewMemoryStore()
	actor := id.NewUserID()
	events := []*audit.Event{
		{
			ID:          uuid.New(),
			Action:      audit.ActionListingCreated,
			ActorID:     &actor,
			SubjectType: "listing",
			SubjectID:   id.NewListingID().String(),
			Detail:      map[string]string{"name": "Harbor Grill"},
			OccurredAt:  time.Now().UTC(),
		},
		{
			ID:          uuid.New(),
			Action:      audit.ActionListingApproved,
			ActorID:     &actor,
			SubjectType: "listing",
			SubjectID:   id.NewListingID().String(),
			OccurredAt:  time.Now().UTC().Add(time.Second),
		},
	}
	for _, e := range events {
		require.NoError(t, outbox.Enqueue(ctx, e))
	}

	const topic = "carteret.audit.test"
	relay, err := audit.NewRelay(ctx, []string{broker}, topic, 100*time.Millisecond, outbox, logger.New())
	require.NoError(t, err)
	defer relay.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go relay.Run(runCtx)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	received := make(map[string]audit.Action)
	deadline := time.Now().Add(30 * time.Second)
	for len(received) < len(events) && time.Now().Before(deadline) {
		pollCtx, pollCancel := context.WithTimeout(ctx, 2*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		pollCancel()

		fetches.EachRecord(func(rec *kgo.Record) {
			var e audit.Event
			require.NoError(t, json.Unmarshal(rec.Value, &e))
			require.Equal(t, e.SubjectID, string(rec.Key))
			received[e.SubjectID] = e.Action
		})
	}

	require.Len(t, received, len(events))
	for _, e := range events {
		require.Equal(t, e.Action, received[e.SubjectID])
	}

	// Acked only after the broker took the batch.
	require.Eventually(t, func() bool {
		unpublished, err := outbox.FetchUnpublished(ctx, 10)
		return err == nil && len(unpublished) == 0
	}, 10*time.Second, 100*time.Millisecond)
}
