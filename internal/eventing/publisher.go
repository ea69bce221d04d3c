package eventing

import (
	"context"
	"time"

	"etterlatte-utbetaling/internal/observability/metrics"
)

// Publisher writes events to the outbox.
type Publisher struct {
	outbox OutboxWriter
}

// OutboxWriter inserts outbox records. Inserting an event id twice is a no-op.
type OutboxWriter interface {
	Insert(ctx context.Context, env Envelope) (string, error)
}

// NewPublisher constructs a publisher.
func NewPublisher(outbox OutboxWriter) *Publisher {
	return &Publisher{outbox: outbox}
}

// Publish writes the event to the outbox. Delivery happens on the next dispatch run.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	start := time.Now()
	if p == nil || p.outbox == nil {
		return nil
	}
	env, err := BuildEnvelope(event, MetaFromContext(ctx))
	if err != nil {
		metrics.ObserveOutboxPublish(metrics.ResultError, time.Since(start))
		return err
	}
	if _, err := p.outbox.Insert(ctx, env); err != nil {
		metrics.ObserveOutboxPublish(metrics.ResultError, time.Since(start))
		return err
	}
	metrics.ObserveOutboxPublish(metrics.ResultSuccess, time.Since(start))
	return nil
}
