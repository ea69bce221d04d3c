// Package konsistens reconstructs effective payment lines and runs consistency reconciliations.
package konsistens

import (
	"sort"
	"time"

	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// KjentFoer returns midnight after dato in loc, as UTC. Lines created before it are known as of dato.
func KjentFoer(dato time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := dato.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC()
}

// GjeldendeLinjer returns the lines of one case that are effective as of dato, ordered by id.
//
// Only lines created before the end of dato in the ledger's time zone are known. The effective end of a line is the
// earliest of its own end and the day before the start of every known line that supersedes it,
// directly or through a chain. A line is effective when it pays out, has not ended before dato,
// and has not been superseded back to before its own start.
func GjeldendeLinjer(linjer []utbetaling.Utbetalingslinje, dato time.Time) []utbetaling.Utbetalingslinje {
	dato = utbetaling.Dato(dato)
	kjentFoer := KjentFoer(dato, oppdrag.Tidssone())

	kjente := make(map[int64]utbetaling.Utbetalingslinje, len(linjer))
	for _, l := range linjer {
		if l.Opprettet.Before(kjentFoer) {
			kjente[l.ID] = l
		}
	}

	slutt := make(map[int64]*time.Time, len(kjente))
	for id, l := range kjente {
		slutt[id] = l.Periode.Til
	}
	for _, etterfoelger := range kjente {
		grense := etterfoelger.Periode.Fra.AddDate(0, 0, -1)
		besoekt := map[int64]bool{etterfoelger.ID: true}
		for forrige := etterfoelger.ErstatterID; forrige != nil; {
			if besoekt[*forrige] {
				break
			}
			besoekt[*forrige] = true
			l, ok := kjente[*forrige]
			if !ok {
				break
			}
			if end := slutt[l.ID]; end == nil || grense.Before(*end) {
				g := grense
				slutt[l.ID] = &g
			}
			forrige = l.ErstatterID
		}
	}

	var result []utbetaling.Utbetalingslinje
	for id, l := range kjente {
		if l.Type != utbetaling.LinjeTypeUtbetaling {
			continue
		}
		end := slutt[id]
		if end != nil && (end.Before(dato) || end.Before(l.Periode.Fra)) {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
