// Package memory is an in-process queue used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"etterlatte-utbetaling/internal/messaging"
)

// Broker records published messages per queue.
type Broker struct {
	mu       sync.Mutex
	queues   map[string][]messaging.Message
	failures map[string]error
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		queues:   make(map[string][]messaging.Message),
		failures: make(map[string]error),
	}
}

// Publish stores msg unless a failure is configured for queue.
func (b *Broker) Publish(ctx context.Context, queue string, msg messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", messaging.ErrPublish, queue, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[queue]; err != nil {
		return fmt.Errorf("%w: %s: %v", messaging.ErrPublish, queue, err)
	}
	body := append([]byte(nil), msg.Body...)
	msg.Body = body
	b.queues[queue] = append(b.queues[queue], msg)
	return nil
}

// FailWith makes every publish to queue fail with err until cleared with nil.
func (b *Broker) FailWith(queue string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, queue)
		return
	}
	b.failures[queue] = err
}

// Messages returns a copy of the messages published to queue.
func (b *Broker) Messages(queue string) []messaging.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messaging.Message(nil), b.queues[queue]...)
}

// Delivery is an inbound message that records how it was settled.
type Delivery struct {
	mu          sync.Mutex
	body        []byte
	correlation string
	redelivered bool
	acked       int
	nacked      int
	requeued    bool
}

// NewDelivery wraps body as an unsettled delivery.
func NewDelivery(body []byte) *Delivery {
	return &Delivery{body: body}
}

func (d *Delivery) Body() []byte          { return d.body }
func (d *Delivery) CorrelationID() string { return d.correlation }
func (d *Delivery) Redelivered() bool     { return d.redelivered }

// Ack settles the delivery.
func (d *Delivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked++
	return nil
}

// Nack rejects the delivery.
func (d *Delivery) Nack(requeue bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nacked++
	d.requeued = requeue
	return nil
}

// Acked returns the number of acks.
func (d *Delivery) Acked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked
}

// Nacked returns the number of nacks and whether the last one requeued.
func (d *Delivery) Nacked() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nacked, d.requeued
}
