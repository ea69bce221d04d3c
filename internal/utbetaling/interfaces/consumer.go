package interfaces

import (
	"context"
	"fmt"
	"time"

	"etterlatte-utbetaling/internal/messaging"
)

// settler moves deliveries to the dead letter queue or back to the source queue.
type settler struct {
	dlq     messaging.Publisher
	queue   string
	backoff time.Duration
}

// deadLetter copies the delivery to the queue's DLQ and acks it. When the copy
// cannot be published the delivery is requeued instead.
func (s settler) deadLetter(ctx context.Context, d messaging.Delivery, reason error) error {
	err := s.dlq.Publish(ctx, messaging.DeadLetterQueue(s.queue), messaging.Message{
		Body:          d.Body(),
		CorrelationID: d.CorrelationID(),
		Headers: map[string]any{
			"source_queue": s.queue,
			"error":        reason.Error(),
		},
	})
	if err != nil {
		if nackErr := d.Nack(true); nackErr != nil {
			return fmt.Errorf("%s: nack after dlq failure: %w", s.queue, nackErr)
		}
		return fmt.Errorf("%s: dlq: %w", s.queue, err)
	}
	return d.Ack()
}

// requeue waits for the backoff and nacks with requeue, returning cause for logging.
func (s settler) requeue(ctx context.Context, d messaging.Delivery, cause error) error {
	if s.backoff > 0 {
		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	if err := d.Nack(true); err != nil {
		return fmt.Errorf("%s: nack: %w", s.queue, err)
	}
	return fmt.Errorf("%s: requeued: %w", s.queue, cause)
}
