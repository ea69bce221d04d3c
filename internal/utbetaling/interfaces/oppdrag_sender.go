package interfaces

import (
	"context"
	"errors"
	"strconv"

	"etterlatte-utbetaling/internal/messaging"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// OppdragSender publishes stored instruction payloads to the ledger queue.
type OppdragSender struct {
	publisher messaging.Publisher
	queue     string
}

// NewOppdragSender constructs a sender for queue.
func NewOppdragSender(publisher messaging.Publisher, queue string) (*OppdragSender, error) {
	if publisher == nil {
		return nil, errors.New("oppdrag sender: nil publisher")
	}
	if queue == "" {
		return nil, errors.New("oppdrag sender: queue is required")
	}
	return &OppdragSender{publisher: publisher, queue: queue}, nil
}

// SendOppdrag publishes the stored bytes unchanged.
func (s *OppdragSender) SendOppdrag(ctx context.Context, u *utbetaling.Utbetaling) error {
	if u == nil {
		return utbetaling.ErrNilUtbetaling
	}
	if len(u.Oppdrag) == 0 {
		return errors.New("oppdrag sender: utbetaling has no stored payload")
	}
	return s.publisher.Publish(ctx, s.queue, messaging.Message{
		Body:          u.Oppdrag,
		ContentType:   messaging.ContentTypeXML,
		CorrelationID: strconv.FormatInt(u.VedtakID, 10),
		Headers: map[string]any{
			"utbetaling_id": u.ID,
			"sak_id":        strconv.FormatInt(u.SakID, 10),
		},
	})
}
