package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/messaging"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// VedtakIssuer turns a decision into a payment instruction.
type VedtakIssuer interface {
	Issue(ctx context.Context, v utbetaling.Vedtak) (*utbetaling.Utbetaling, bool, error)
}

// VedtakConsumer settles decision deliveries.
type VedtakConsumer struct {
	issuer  VedtakIssuer
	settler settler
	logger  *zap.Logger
}

// NewVedtakConsumer constructs a consumer for queue.
func NewVedtakConsumer(issuer VedtakIssuer, dlq messaging.Publisher, queue string, backoff time.Duration, logger *zap.Logger) (*VedtakConsumer, error) {
	if issuer == nil {
		return nil, errors.New("vedtak consumer: nil issuer")
	}
	if dlq == nil {
		return nil, errors.New("vedtak consumer: nil dlq publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VedtakConsumer{
		issuer:  issuer,
		settler: settler{dlq: dlq, queue: queue, backoff: backoff},
		logger:  logger,
	}, nil
}

// Handle processes one decision delivery. Decisions that can never succeed go to the DLQ.
// A decision that was persisted but not published is acked; the resend sweep owns it.
func (c *VedtakConsumer) Handle(ctx context.Context, d messaging.Delivery) error {
	var v utbetaling.Vedtak
	if err := json.Unmarshal(d.Body(), &v); err != nil {
		c.logger.Warn("ugyldig vedtak-melding flyttes til dlq", zap.Error(err))
		return c.settler.deadLetter(ctx, d, fmt.Errorf("%w: %v", utbetaling.ErrUgyldigVedtak, err))
	}
	log := c.logger.With(zap.Int64("vedtak_id", v.VedtakID), zap.Int64("sak_id", v.SakID))

	u, created, err := c.issuer.Issue(ctx, v)
	switch {
	case err == nil:
		if created {
			log.Info("vedtak behandlet", zap.String("utbetaling_id", u.ID))
		}
		return d.Ack()
	case errors.Is(err, utbetaling.ErrUgyldigVedtak), errors.Is(err, oppdrag.ErrIngenLinjer):
		log.Warn("vedtak avvist, flyttes til dlq", zap.Error(err))
		return c.settler.deadLetter(ctx, d, err)
	case errors.Is(err, messaging.ErrPublish) && u != nil:
		log.Warn("utbetaling lagret, sendes paa nytt senere", zap.String("utbetaling_id", u.ID), zap.Error(err))
		return d.Ack()
	case errors.Is(err, utbetaling.ErrVenterPaaKvittering):
		log.Info("vedtak venter paa kvittering for tidligere utbetaling", zap.Error(err))
		return c.settler.requeue(ctx, d, err)
	default:
		return c.settler.requeue(ctx, d, err)
	}
}
