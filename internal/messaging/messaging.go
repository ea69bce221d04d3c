// Package messaging defines the queue abstractions shared by the channel adapters.
package messaging

import (
	"context"
	"errors"
)

// ErrPublish is returned when the broker does not confirm a publish.
var ErrPublish = errors.New("messaging: publish failed")

const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
)

// Message is an outbound message.
type Message struct {
	Body          []byte
	ContentType   string
	CorrelationID string
	Headers       map[string]any
}

// Publisher sends a message to a named queue and blocks until the broker confirms it.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
}

// Delivery is an inbound message awaiting settlement.
type Delivery interface {
	Body() []byte
	CorrelationID() string
	Redelivered() bool
	Ack() error
	Nack(requeue bool) error
}

// Handler processes one delivery and settles it.
type Handler func(ctx context.Context, d Delivery) error

// DeadLetterQueue returns the dead letter queue name for queue.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}
