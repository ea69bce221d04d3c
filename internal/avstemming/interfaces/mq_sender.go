package interfaces

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"etterlatte-utbetaling/internal/messaging"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// MQSender publishes reconciliation messages to the reconciliation queue in order.
type MQSender struct {
	publisher messaging.Publisher
	queue     string
}

// NewMQSender constructs a sender for queue.
func NewMQSender(publisher messaging.Publisher, queue string) (*MQSender, error) {
	if publisher == nil {
		return nil, errors.New("avstemming sender: nil publisher")
	}
	if queue == "" {
		return nil, errors.New("avstemming sender: queue is required")
	}
	return &MQSender{publisher: publisher, queue: queue}, nil
}

// SendAvstemming publishes each message and stops at the first unconfirmed one.
func (s *MQSender) SendAvstemming(ctx context.Context, sakType utbetaling.SakType, meldinger [][]byte) error {
	for i, melding := range meldinger {
		err := s.publisher.Publish(ctx, s.queue, messaging.Message{
			Body:        melding,
			ContentType: messaging.ContentTypeXML,
			Headers: map[string]any{
				"sak_type": string(sakType),
				"sekvens":  strconv.Itoa(i),
				"antall":   strconv.Itoa(len(meldinger)),
			},
		})
		if err != nil {
			return fmt.Errorf("avstemming sender: melding %d av %d: %w", i+1, len(meldinger), err)
		}
	}
	return nil
}
