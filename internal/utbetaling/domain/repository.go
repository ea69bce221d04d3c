package utbetaling

import (
	"context"
	"time"
)

// Repository persists payment instructions.
type Repository interface {
	// Hent returns the instruction with id, or nil when absent.
	Hent(ctx context.Context, id string) (*Utbetaling, error)
	// HentForVedtak returns the instruction for a decision, or nil when absent.
	HentForVedtak(ctx context.Context, vedtakID int64) (*Utbetaling, error)
	// HentForSak returns every instruction of a case with lines and history, oldest first.
	HentForSak(ctx context.Context, sakID int64) ([]Utbetaling, error)
	// ReserverLinjeIDer returns n fresh line ids from the global sequence.
	ReserverLinjeIDer(ctx context.Context, n int) ([]int64, error)
	// Opprett stores the instruction with its lines and a SENDT entry atomically.
	// ErrUtbetalingFinnes is returned when the decision is already stored.
	Opprett(ctx context.Context, u *Utbetaling) error
	// MarkerPublisert records that the ledger channel confirmed the instruction.
	MarkerPublisert(ctx context.Context, id string, tidspunkt time.Time) error
	// HentUpubliserte returns SENDT instructions without a confirmed publish created before the cutoff.
	HentUpubliserte(ctx context.Context, opprettetFoer time.Time, limit int) ([]Utbetaling, error)
	// LagreKvittering appends the terminal status and stores the receipt atomically.
	// ErrAlleredeKvittert is returned when the instruction already has a terminal status.
	LagreKvittering(ctx context.Context, id string, kvittering Kvittering, status Status) error
	// HentForAvstemming returns instructions with a reconciliation key in [fra, til).
	HentForAvstemming(ctx context.Context, sakType SakType, fra, til time.Time) ([]Utbetaling, error)
	// HentGodkjenteTil returns accepted instructions created before the cutoff.
	HentGodkjenteTil(ctx context.Context, sakType SakType, opprettetFoer time.Time) ([]Utbetaling, error)
}
