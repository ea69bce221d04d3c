package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const uniqueViolation = "23505"

const utbetalingColumns = `id, sak_id, vedtak_id, behandling_id, sak_type, stoenadsmottaker,
	saksbehandler, attestant, avstemmingsnoekkel, opprettet, endret, oppdrag, publisert`

// Repository persists payment instructions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Hent returns the instruction with id, or nil when absent.
func (r *Repository) Hent(ctx context.Context, id string) (*utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE id = $1`, id)
	return r.hentEn(ctx, row)
}

// HentForVedtak returns the instruction for a decision, or nil when absent.
func (r *Repository) HentForVedtak(ctx context.Context, vedtakID int64) (*utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE vedtak_id = $1`, vedtakID)
	return r.hentEn(ctx, row)
}

func (r *Repository) hentEn(ctx context.Context, row rowScanner) (*utbetaling.Utbetaling, error) {
	u, err := scanUtbetaling(row)
	if err != nil || u == nil {
		return u, err
	}
	list := []*utbetaling.Utbetaling{u}
	if err := loadDetaljer(ctx, r.db, list); err != nil {
		return nil, err
	}
	return u, nil
}

// HentForSak returns every instruction of a case with lines and history, oldest first.
func (r *Repository) HentForSak(ctx context.Context, sakID int64) ([]utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	return r.list(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE sak_id = $1
ORDER BY opprettet ASC, id ASC`, sakID)
}

// ReserverLinjeIDer draws n ids from the line sequence.
func (r *Repository) ReserverLinjeIDer(ctx context.Context, n int) ([]int64, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT nextval('utbetalingslinje_id_seq') FROM generate_series(1, $1)`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int64, 0, n)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Opprett stores the instruction, its lines and the SENDT entry in one transaction.
func (r *Repository) Opprett(ctx context.Context, u *utbetaling.Utbetaling) error {
	if r == nil || r.db == nil {
		return errors.New("utbetaling repo: nil db")
	}
	if u == nil {
		return utbetaling.ErrNilUtbetaling
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO utbetaling (
	id, sak_id, vedtak_id, behandling_id, sak_type, stoenadsmottaker,
	saksbehandler, attestant, avstemmingsnoekkel, opprettet, endret, status, oppdrag
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`,
		u.ID, u.SakID, u.VedtakID, u.BehandlingID, string(u.SakType), u.StoenadsmottakerID,
		u.Saksbehandler, u.Attestant, u.Avstemmingsnoekkel, u.Opprettet, u.Endret, string(utbetaling.StatusSendt), u.Oppdrag,
	)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return utbetaling.ErrUtbetalingFinnes
		}
		return err
	}
	for _, l := range u.Linjer {
		var til sql.NullTime
		if l.Periode.Til != nil {
			til = sql.NullTime{Time: *l.Periode.Til, Valid: true}
		}
		var beloep decimal.NullDecimal
		if l.Beloep != nil {
			beloep = decimal.NullDecimal{Decimal: *l.Beloep, Valid: true}
		}
		var erstatter sql.NullInt64
		if l.ErstatterID != nil {
			erstatter = sql.NullInt64{Int64: *l.ErstatterID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO utbetalingslinje (
	id, type, utbetaling_id, sak_id, periode_fra, periode_til, beloep,
	klassifikasjonskode, opprettet, erstatter_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			l.ID, string(l.Type), u.ID, u.SakID, l.Periode.Fra, til, beloep,
			l.Klassifikasjonskode, l.Opprettet, erstatter)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("utbetaling repo: linje %d: %w", l.ID, err)
		}
	}
	for _, h := range sendtHendelser(u) {
		if err := insertHendelse(ctx, tx, h); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func sendtHendelser(u *utbetaling.Utbetaling) []utbetaling.UtbetalingHendelse {
	if len(u.Hendelser) > 0 {
		return u.Hendelser
	}
	return []utbetaling.UtbetalingHendelse{{
		ID:           uuid.NewString(),
		UtbetalingID: u.ID,
		Status:       utbetaling.StatusSendt,
		Tidspunkt:    u.Opprettet,
	}}
}

func insertHendelse(ctx context.Context, tx *sql.Tx, h utbetaling.UtbetalingHendelse) error {
	id := h.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO utbetalingshendelse (id, utbetaling_id, status, tidspunkt)
VALUES ($1,$2,$3,$4)`, id, h.UtbetalingID, string(h.Status), h.Tidspunkt)
	return err
}

// MarkerPublisert records the confirmed publish once.
func (r *Repository) MarkerPublisert(ctx context.Context, id string, tidspunkt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("utbetaling repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE utbetaling
SET publisert = COALESCE(publisert, $2)
WHERE id = $1`, id, tidspunkt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return utbetaling.ErrIkkeFunnet
	}
	return nil
}

// HentUpubliserte returns SENDT instructions without a confirmed publish, oldest first.
func (r *Repository) HentUpubliserte(ctx context.Context, opprettetFoer time.Time, limit int) ([]utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	if limit <= 0 {
		limit = 20
	}
	return r.list(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE publisert IS NULL AND status = 'SENDT' AND opprettet < $1
ORDER BY opprettet ASC, id ASC
LIMIT $2`, opprettetFoer, limit)
}

// LagreKvittering locks the instruction row, then appends status and receipt in one transaction.
func (r *Repository) LagreKvittering(ctx context.Context, id string, kvittering utbetaling.Kvittering, status utbetaling.Status) error {
	if r == nil || r.db == nil {
		return errors.New("utbetaling repo: nil db")
	}
	if !status.Terminal() {
		return utbetaling.ErrUgyldigStatus
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM utbetaling WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return utbetaling.ErrIkkeFunnet
		}
		return err
	}
	if utbetaling.Status(current).Terminal() {
		_ = tx.Rollback()
		return utbetaling.ErrAlleredeKvittert
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO kvittering (utbetaling_id, melding, alvorlighetsgrad, kode, beskrivelse, mottatt)
VALUES ($1,$2,$3,$4,$5,$6)`,
		id, kvittering.Melding, kvittering.Alvorlighetsgrad, kvittering.Kode, kvittering.Beskrivelse, kvittering.Mottatt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertHendelse(ctx, tx, utbetaling.UtbetalingHendelse{
		UtbetalingID: id,
		Status:       status,
		Tidspunkt:    kvittering.Mottatt,
	}); err != nil {
		_ = tx.Rollback()
		return err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE utbetaling
SET status = $2, endret = $3
WHERE id = $1`, id, string(status), kvittering.Mottatt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// HentForAvstemming returns instructions with a reconciliation key in [fra, til).
func (r *Repository) HentForAvstemming(ctx context.Context, sakType utbetaling.SakType, fra, til time.Time) ([]utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	return r.list(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE sak_type = $1 AND avstemmingsnoekkel >= $2 AND avstemmingsnoekkel < $3
ORDER BY avstemmingsnoekkel ASC, id ASC`, string(sakType), fra, til)
}

// HentGodkjenteTil returns accepted instructions created before the cutoff.
func (r *Repository) HentGodkjenteTil(ctx context.Context, sakType utbetaling.SakType, opprettetFoer time.Time) ([]utbetaling.Utbetaling, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("utbetaling repo: nil db")
	}
	return r.list(ctx, `
SELECT `+utbetalingColumns+`
FROM utbetaling
WHERE sak_type = $1 AND status IN ('GODKJENT', 'GODKJENT_MED_FEIL') AND opprettet < $2
ORDER BY sak_id ASC, opprettet ASC, id ASC`, string(sakType), opprettetFoer)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]utbetaling.Utbetaling, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var list []*utbetaling.Utbetaling
	for rows.Next() {
		u, err := scanUtbetaling(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := loadDetaljer(ctx, r.db, list); err != nil {
		return nil, err
	}
	result := make([]utbetaling.Utbetaling, 0, len(list))
	for _, u := range list {
		result = append(result, *u)
	}
	return result, nil
}

func scanUtbetaling(row rowScanner) (*utbetaling.Utbetaling, error) {
	var (
		u         utbetaling.Utbetaling
		sakType   string
		publisert sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.SakID, &u.VedtakID, &u.BehandlingID, &sakType, &u.StoenadsmottakerID,
		&u.Saksbehandler, &u.Attestant, &u.Avstemmingsnoekkel, &u.Opprettet, &u.Endret, &u.Oppdrag, &publisert,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.SakType = utbetaling.SakType(sakType)
	u.Avstemmingsnoekkel = u.Avstemmingsnoekkel.UTC()
	u.Opprettet = u.Opprettet.UTC()
	u.Endret = u.Endret.UTC()
	if publisert.Valid {
		u.Publisert = publisert.Time.UTC()
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
