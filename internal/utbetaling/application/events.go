package application

import (
	"time"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// UtbetalingStatusEndret is emitted when an instruction reaches a terminal status.
type UtbetalingStatusEndret struct {
	EventID      string            `json:"eventId"`
	UtbetalingID string            `json:"utbetalingId"`
	VedtakID     int64             `json:"vedtakId"`
	SakID        int64             `json:"sakId"`
	BehandlingID string            `json:"behandlingId"`
	Status       utbetaling.Status `json:"status"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

// EventType names the event on the status channel.
func (UtbetalingStatusEndret) EventType() string { return "UtbetalingStatusEndret" }
