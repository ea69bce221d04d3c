package interfaces

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/messaging"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// KvitteringHandler applies a raw receipt.
type KvitteringHandler interface {
	HandleKvittering(ctx context.Context, melding []byte) (*utbetaling.Utbetaling, error)
}

// KvitteringConsumer settles receipt deliveries.
type KvitteringConsumer struct {
	handler KvitteringHandler
	settler settler
	logger  *zap.Logger
}

// NewKvitteringConsumer constructs a consumer for queue. Undecodable receipts are
// requeued after backoff; receipts for unknown instructions go to the DLQ.
func NewKvitteringConsumer(handler KvitteringHandler, dlq messaging.Publisher, queue string, backoff time.Duration, logger *zap.Logger) (*KvitteringConsumer, error) {
	if handler == nil {
		return nil, errors.New("kvittering consumer: nil handler")
	}
	if dlq == nil {
		return nil, errors.New("kvittering consumer: nil dlq publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KvitteringConsumer{
		handler: handler,
		settler: settler{dlq: dlq, queue: queue, backoff: backoff},
		logger:  logger,
	}, nil
}

// Handle processes one receipt delivery.
func (c *KvitteringConsumer) Handle(ctx context.Context, d messaging.Delivery) error {
	_, err := c.handler.HandleKvittering(ctx, d.Body())
	switch {
	case err == nil:
		return d.Ack()
	case errors.Is(err, utbetaling.ErrAlleredeKvittert):
		return d.Ack()
	case errors.Is(err, oppdrag.ErrUgyldigKvittering):
		return c.settler.requeue(ctx, d, err)
	case errors.Is(err, utbetaling.ErrIkkeFunnet):
		c.logger.Warn("kvittering for ukjent utbetaling flyttes til dlq", zap.Error(err))
		return c.settler.deadLetter(ctx, d, err)
	default:
		return c.settler.requeue(ctx, d, err)
	}
}
