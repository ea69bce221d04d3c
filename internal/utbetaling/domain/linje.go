package utbetaling

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// LinjeType distinguishes payment lines from termination lines.
type LinjeType string

const (
	LinjeTypeUtbetaling LinjeType = "UTBETALING"
	LinjeTypeOpphoer    LinjeType = "OPPHOER"
)

// Utbetalingslinje is one period of a payment instruction. Lines are never mutated;
// a later line takes over for an earlier one through ErstatterID.
type Utbetalingslinje struct {
	ID                  int64
	Type                LinjeType
	UtbetalingID        string
	SakID               int64
	Periode             Periode
	Beloep              *decimal.Decimal
	Klassifikasjonskode string
	Opprettet           time.Time
	ErstatterID         *int64
}

// Validate checks the invariants of a single line.
func (l Utbetalingslinje) Validate() error {
	if l.ID <= 0 {
		return errors.New("utbetaling: linje mangler id")
	}
	if l.Periode.Fra.IsZero() {
		return errors.New("utbetaling: linje mangler fra-dato")
	}
	if l.Periode.Til != nil && l.Periode.Til.Before(l.Periode.Fra) {
		return errors.New("utbetaling: linje har til-dato foer fra-dato")
	}
	switch l.Type {
	case LinjeTypeUtbetaling:
		if l.Beloep == nil {
			return errors.New("utbetaling: utbetalingslinje mangler beloep")
		}
	case LinjeTypeOpphoer:
		if l.Beloep != nil {
			return errors.New("utbetaling: opphoerslinje kan ikke ha beloep")
		}
		if l.ErstatterID == nil {
			return errors.New("utbetaling: opphoerslinje mangler linje aa erstatte")
		}
	default:
		return errors.New("utbetaling: ukjent linjetype")
	}
	if l.ErstatterID != nil && *l.ErstatterID == l.ID {
		return errors.New("utbetaling: linje kan ikke erstatte seg selv")
	}
	return nil
}

// SisteLinje returns the most recently created line, ties broken by id.
func SisteLinje(linjer []Utbetalingslinje) *Utbetalingslinje {
	var siste *Utbetalingslinje
	for i := range linjer {
		l := &linjer[i]
		if siste == nil || l.Opprettet.After(siste.Opprettet) ||
			(l.Opprettet.Equal(siste.Opprettet) && l.ID > siste.ID) {
			siste = l
		}
	}
	return siste
}
