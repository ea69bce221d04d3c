package utbetaling

import (
	"time"

	"github.com/shopspring/decimal"
)

// Utbetaling is a payment instruction for one decision.
type Utbetaling struct {
	ID                 string
	SakID              int64
	VedtakID           int64
	BehandlingID       string
	SakType            SakType
	StoenadsmottakerID string
	Saksbehandler      string
	Attestant          string
	Avstemmingsnoekkel time.Time
	Opprettet          time.Time
	Endret             time.Time
	Oppdrag            []byte
	Publisert          time.Time
	Linjer             []Utbetalingslinje
	Hendelser          []UtbetalingHendelse
	Kvittering         *Kvittering
}

// Status returns the status of the last history entry.
func (u *Utbetaling) Status() Status {
	if u == nil || len(u.Hendelser) == 0 {
		return StatusSendt
	}
	siste := u.Hendelser[0]
	for _, h := range u.Hendelser[1:] {
		if !h.Tidspunkt.Before(siste.Tidspunkt) {
			siste = h
		}
	}
	return siste.Status
}

// ErPublisert reports whether the ledger channel confirmed the instruction.
func (u *Utbetaling) ErPublisert() bool {
	return u != nil && !u.Publisert.IsZero()
}

// Beloep returns the signed sum of all payment line amounts.
func (u *Utbetaling) Beloep() decimal.Decimal {
	sum := decimal.Zero
	if u == nil {
		return sum
	}
	for _, l := range u.Linjer {
		if l.Beloep != nil {
			sum = sum.Add(*l.Beloep)
		}
	}
	return sum
}

// ForsteForSak reports whether the instruction starts the case's line chain, that is
// none of its lines supersedes a line of an earlier instruction.
func (u *Utbetaling) ForsteForSak() bool {
	if u == nil {
		return false
	}
	egne := make(map[int64]bool, len(u.Linjer))
	for _, l := range u.Linjer {
		egne[l.ID] = true
	}
	for _, l := range u.Linjer {
		if l.ErstatterID != nil && !egne[*l.ErstatterID] {
			return false
		}
	}
	return true
}
