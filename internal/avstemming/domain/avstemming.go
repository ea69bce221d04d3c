// Package avstemming holds the reconciliation records and their ports.
package avstemming

import (
	"context"
	"errors"
	"time"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

var (
	// ErrAvstemmingFinnes is returned when a record for the same boundary is already stored.
	ErrAvstemmingFinnes = errors.New("avstemming: already recorded")
	// ErrNilAvstemming is returned when a nil record is stored.
	ErrNilAvstemming = errors.New("avstemming: nil record")
)

// Epoch is the window start before the first interface reconciliation.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Grensesnittavstemming records one completed interface reconciliation over [PeriodeFra, PeriodeTil).
type Grensesnittavstemming struct {
	ID              string
	SakType         utbetaling.SakType
	PeriodeFra      time.Time
	PeriodeTil      time.Time
	AntallOppdrag   int
	Avstemmingsdata string
	Opprettet       time.Time
}

// Konsistensavstemming records one completed consistency reconciliation as of Dato.
// Only lines created before OpprettetFoer were known to the run.
type Konsistensavstemming struct {
	ID              string
	SakType         utbetaling.SakType
	Dato            time.Time
	OpprettetFoer   time.Time
	AntallOppdrag   int
	Avstemmingsdata string
	Snapshot        []OppdragSnapshot
	Opprettet       time.Time
}

// OppdragSnapshot is the effective line set of one case.
type OppdragSnapshot struct {
	SakID              int64           `json:"sakId"`
	StoenadsmottakerID string          `json:"stoenadsmottakerId"`
	Linjer             []SnapshotLinje `json:"linjer"`
}

// SnapshotLinje is one effective line in a snapshot.
type SnapshotLinje struct {
	ID                  int64  `json:"id"`
	UtbetalingID        string `json:"utbetalingId"`
	Fra                 string `json:"fra"`
	Til                 string `json:"til,omitempty"`
	Beloep              string `json:"beloep"`
	Klassifikasjonskode string `json:"klassifikasjonskode"`
}

// Repository stores reconciliation records. Records are never updated.
type Repository interface {
	// SisteGrensesnitt returns the most recent record for sakType, or nil.
	SisteGrensesnitt(ctx context.Context, sakType utbetaling.SakType) (*Grensesnittavstemming, error)
	LagreGrensesnitt(ctx context.Context, a *Grensesnittavstemming) error
	// SisteKonsistens returns the most recent record for sakType, or nil.
	SisteKonsistens(ctx context.Context, sakType utbetaling.SakType) (*Konsistensavstemming, error)
	LagreKonsistens(ctx context.Context, a *Konsistensavstemming) error
	ListGrensesnitt(ctx context.Context, sakType utbetaling.SakType, limit int) ([]Grensesnittavstemming, error)
}

// Sender publishes one report as an ordered message sequence and returns once all are confirmed.
type Sender interface {
	SendAvstemming(ctx context.Context, sakType utbetaling.SakType, meldinger [][]byte) error
}
