package interfaces

import (
	"context"
	"strconv"

	"etterlatte-utbetaling/internal/eventing"
	"etterlatte-utbetaling/internal/utbetaling/application"
)

// OutboxPublisher writes status events to the outbox.
type OutboxPublisher struct {
	publisher *eventing.Publisher
}

// NewOutboxPublisher constructs a publisher adapter.
func NewOutboxPublisher(publisher *eventing.Publisher) *OutboxPublisher {
	return &OutboxPublisher{publisher: publisher}
}

// PublishStatusEndret writes the event keyed by its deterministic event id.
func (p *OutboxPublisher) PublishStatusEndret(ctx context.Context, event application.UtbetalingStatusEndret) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	ctx = eventing.WithEventID(ctx, event.EventID)
	ctx = eventing.WithSakID(ctx, strconv.FormatInt(event.SakID, 10))
	ctx = eventing.WithCorrelationID(ctx, event.UtbetalingID)
	return p.publisher.Publish(ctx, event)
}
