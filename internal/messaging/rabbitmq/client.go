package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/messaging"
)

// Client owns one connection, a confirm-mode publish channel and one channel per consumer.
type Client struct {
	conn     *amqp.Connection
	pub      *amqp.Channel
	mu       sync.Mutex
	log      *zap.Logger
	prefetch int
}

// Dial connects to the broker and enables publisher confirms.
func Dial(url string, log *zap.Logger, prefetch int) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: confirm mode: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Client{
		conn:     conn,
		pub:      ch,
		log:      log,
		prefetch: prefetch,
	}, nil
}

// Declare creates each queue and its dead letter queue as durable queues.
func (c *Client) Declare(queues ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queues {
		for _, name := range []string{q, messaging.DeadLetterQueue(q)} {
			if _, err := c.pub.QueueDeclare(
				name,  // name
				true,  // durable
				false, // autoDelete
				false, // exclusive
				false, // noWait
				nil,   // args
			); err != nil {
				return fmt.Errorf("rabbitmq: declare %s: %w", name, err)
			}
		}
	}
	return nil
}

// Publish sends a persistent message and waits for the broker confirm of that message.
// Each publish carries its own deferred confirmation, so a caller giving up on ctx
// leaves the confirms of later publishes intact.
func (c *Client) Publish(ctx context.Context, queue string, msg messaging.Message) error {
	if c == nil || c.pub == nil {
		return errors.New("rabbitmq: nil client")
	}
	publishing := amqp.Publishing{
		ContentType:   msg.ContentType,
		CorrelationId: msg.CorrelationID,
		Headers:       amqp.Table(msg.Headers),
		Body:          msg.Body,
		DeliveryMode:  amqp.Persistent,
	}

	c.mu.Lock()
	confirm, err := c.pub.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, publishing)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", messaging.ErrPublish, queue, err)
	}
	if confirm == nil {
		return fmt.Errorf("%w: %s: channel not in confirm mode", messaging.ErrPublish, queue)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", messaging.ErrPublish, queue, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s: message not confirmed", messaging.ErrPublish, queue)
	}
	return nil
}

// Consume delivers messages from queue to handler until ctx is done.
// The handler settles each delivery; a returned error is only logged.
func (c *Client) Consume(ctx context.Context, queue string, handler messaging.Handler) error {
	if handler == nil {
		return errors.New("rabbitmq: nil handler")
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: consumer channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", queue, err)
	}
	c.log.Info("rabbitmq consumer started", zap.String("queue", queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: %s: delivery channel closed", queue)
			}
			if err := handler(ctx, delivery{d: d}); err != nil {
				c.log.Warn("rabbitmq handler failed",
					zap.String("queue", queue),
					zap.Bool("redelivered", d.Redelivered),
					zap.Error(err),
				)
			}
		}
	}
}

// Healthy reports whether the connection is open.
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && !c.conn.IsClosed()
}

// Close closes the publish channel and the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if c.pub != nil {
		_ = c.pub.Close()
	}
	return c.conn.Close()
}

type delivery struct {
	d amqp.Delivery
}

func (d delivery) Body() []byte            { return d.d.Body }
func (d delivery) CorrelationID() string   { return d.d.CorrelationId }
func (d delivery) Redelivered() bool       { return d.d.Redelivered }
func (d delivery) Ack() error              { return d.d.Ack(false) }
func (d delivery) Nack(requeue bool) error { return d.d.Nack(false, requeue) }
