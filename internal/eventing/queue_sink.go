package eventing

import (
	"context"

	json "github.com/goccy/go-json"

	"etterlatte-utbetaling/internal/messaging"
)

// QueueSink forwards envelopes as JSON to a broker queue.
type QueueSink struct {
	publisher messaging.Publisher
	queue     string
}

// NewQueueSink constructs a sink for queue.
func NewQueueSink(publisher messaging.Publisher, queue string) *QueueSink {
	return &QueueSink{publisher: publisher, queue: queue}
}

// Publish sends env with its event id as correlation id.
func (s *QueueSink) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, s.queue, messaging.Message{
		Body:          body,
		ContentType:   messaging.ContentTypeJSON,
		CorrelationID: env.CorrelationID,
		Headers: map[string]any{
			"event_id":   env.EventID,
			"event_type": env.EventType,
		},
	})
}
