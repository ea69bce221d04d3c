package eventing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etterlatte-utbetaling/internal/eventing"
	"etterlatte-utbetaling/internal/eventing/infrastructure/memory"
)

type statusChanged struct {
	EventID    string
	SakID      int64
	Status     string
	OccurredAt time.Time
}

func (statusChanged) EventType() string { return "StatusChanged" }

type unregistered struct {
	Value string
}

type recordingSink struct {
	mu   sync.Mutex
	err  error
	envs []eventing.Envelope
}

func (s *recordingSink) Publish(_ context.Context, env eventing.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.envs = append(s.envs, env)
	return nil
}

func newRegistry() *eventing.Registry {
	registry := eventing.NewRegistry()
	registry.Register(statusChanged{})
	return registry
}

func TestPublishDeduplicatesOnEventID(t *testing.T) {
	outbox := memory.NewOutboxStore()
	publisher := eventing.NewPublisher(outbox)
	ctx := context.Background()
	event := statusChanged{EventID: eventing.DeterministicEventID("u-1", "GODKJENT"), SakID: 7, Status: "GODKJENT"}

	require.NoError(t, publisher.Publish(ctx, event))
	require.NoError(t, publisher.Publish(ctx, event))

	envs := outbox.Envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, event.EventID, envs[0].EventID)
	assert.Equal(t, "StatusChanged", envs[0].EventType)
	assert.Equal(t, "7", envs[0].SakID)
}

func TestDispatchForwardsPending(t *testing.T) {
	outbox := memory.NewOutboxStore()
	sink := &recordingSink{}
	dispatcher := eventing.NewDispatcher(sink, outbox, newRegistry(), memory.NewDLQStore())
	publisher := eventing.NewPublisher(outbox)
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, statusChanged{EventID: "e-1", Status: "GODKJENT"}))
	require.NoError(t, publisher.Publish(ctx, statusChanged{EventID: "e-2", Status: "AVVIST"}))

	result, err := dispatcher.Dispatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	require.Len(t, sink.envs, 2)
	assert.Equal(t, "e-1", sink.envs[0].EventID)
	assert.Equal(t, "sent", outbox.Status("e-2"))

	result, err = dispatcher.Dispatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Claimed)
}

func TestDispatchUnknownTypeGoesToDLQ(t *testing.T) {
	outbox := memory.NewOutboxStore()
	dlq := memory.NewDLQStore()
	dispatcher := eventing.NewDispatcher(&recordingSink{}, outbox, newRegistry(), dlq)
	ctx := eventing.WithEventID(context.Background(), "e-unknown")

	require.NoError(t, eventing.NewPublisher(outbox).Publish(ctx, unregistered{Value: "x"}))

	result, err := dispatcher.Dispatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.DLQ)
	assert.Equal(t, 1, dlq.Attempts("e-unknown"))
	assert.Equal(t, "failed", outbox.Status("e-unknown"))
}

func TestDispatchRetriesSinkFailureUntilMaxAttempts(t *testing.T) {
	outbox := memory.NewOutboxStore()
	dlq := memory.NewDLQStore()
	sink := &recordingSink{err: errors.New("broker down")}
	dispatcher := eventing.NewDispatcher(sink, outbox, newRegistry(), dlq, eventing.WithMaxAttempts(2))
	ctx := context.Background()
	require.NoError(t, eventing.NewPublisher(outbox).Publish(ctx, statusChanged{EventID: "e-1"}))

	result, _ := dispatcher.Dispatch(ctx, 10)
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, "pending", outbox.Status("e-1"))

	result, _ = dispatcher.Dispatch(ctx, 10)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, dlq.Attempts("e-1"))
	assert.Equal(t, "failed", outbox.Status("e-1"))
}

func TestDeterministicEventID(t *testing.T) {
	a := eventing.DeterministicEventID("u-1", "GODKJENT")
	assert.Equal(t, a, eventing.DeterministicEventID("u-1", "GODKJENT"))
	assert.NotEqual(t, a, eventing.DeterministicEventID("u-1", "AVVIST"))
	assert.NotEqual(t, eventing.NewEventID(), eventing.NewEventID())
}

func TestContextOverridesAccumulate(t *testing.T) {
	ctx := eventing.WithSakID(context.Background(), "1001")
	ctx = eventing.WithCorrelationID(ctx, "u-1")
	ctx = eventing.WithEventID(ctx, "evt-1")

	env, err := eventing.BuildEnvelope(statusChanged{SakID: 7, Status: "GODKJENT"}, eventing.MetaFromContext(ctx))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, "u-1", env.CorrelationID)
	assert.Equal(t, "1001", env.SakID)
	assert.Equal(t, "StatusChanged", env.EventType)

	plain, err := eventing.BuildEnvelope(statusChanged{EventID: "evt-2", SakID: 7}, eventing.MetaFromContext(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, "evt-2", plain.CorrelationID)
	assert.Equal(t, "7", plain.SakID)
}
