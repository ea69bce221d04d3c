package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const linjeColumns = `id, type, utbetaling_id, sak_id, periode_fra, periode_til, beloep,
	klassifikasjonskode, opprettet, erstatter_id`

// loadDetaljer fills lines, history and receipt for list with one query per table.
func loadDetaljer(ctx context.Context, q queryer, list []*utbetaling.Utbetaling) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	byID := make(map[string]*utbetaling.Utbetaling, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
		byID[u.ID] = u
	}

	rows, err := q.QueryContext(ctx, `
SELECT `+linjeColumns+`
FROM utbetalingslinje
WHERE utbetaling_id = ANY($1::uuid[])
ORDER BY id ASC`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		l, err := scanLinje(rows)
		if err != nil {
			rows.Close()
			return err
		}
		if u := byID[l.UtbetalingID]; u != nil {
			u.Linjer = append(u.Linjer, l)
		}
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
SELECT id, utbetaling_id, status, tidspunkt
FROM utbetalingshendelse
WHERE utbetaling_id = ANY($1::uuid[])
ORDER BY tidspunkt ASC, id ASC`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var h utbetaling.UtbetalingHendelse
		var status string
		if err := rows.Scan(&h.ID, &h.UtbetalingID, &status, &h.Tidspunkt); err != nil {
			rows.Close()
			return err
		}
		h.Status = utbetaling.Status(status)
		h.Tidspunkt = h.Tidspunkt.UTC()
		if u := byID[h.UtbetalingID]; u != nil {
			u.Hendelser = append(u.Hendelser, h)
		}
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
SELECT utbetaling_id, melding, alvorlighetsgrad, kode, beskrivelse, mottatt
FROM kvittering
WHERE utbetaling_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		var k utbetaling.Kvittering
		if err := rows.Scan(&id, &k.Melding, &k.Alvorlighetsgrad, &k.Kode, &k.Beskrivelse, &k.Mottatt); err != nil {
			rows.Close()
			return err
		}
		k.Mottatt = k.Mottatt.UTC()
		if u := byID[id]; u != nil {
			kvittering := k
			u.Kvittering = &kvittering
		}
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

func scanLinje(row rowScanner) (utbetaling.Utbetalingslinje, error) {
	var (
		l         utbetaling.Utbetalingslinje
		linjeType string
		til       sql.NullTime
		beloep    decimal.NullDecimal
		erstatter sql.NullInt64
	)
	if err := row.Scan(
		&l.ID, &linjeType, &l.UtbetalingID, &l.SakID, &l.Periode.Fra, &til, &beloep,
		&l.Klassifikasjonskode, &l.Opprettet, &erstatter,
	); err != nil {
		return l, err
	}
	l.Type = utbetaling.LinjeType(linjeType)
	l.Periode.Fra = utbetaling.Dato(l.Periode.Fra)
	l.Opprettet = l.Opprettet.UTC()
	if til.Valid {
		d := utbetaling.Dato(til.Time)
		l.Periode.Til = &d
	}
	if beloep.Valid {
		b := beloep.Decimal
		l.Beloep = &b
	}
	if erstatter.Valid {
		id := erstatter.Int64
		l.ErstatterID = &id
	}
	return l, nil
}
