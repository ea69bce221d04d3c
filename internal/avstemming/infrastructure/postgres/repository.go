package postgres

import (
	"context"
	"database/sql"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const uniqueViolation = "23505"

// Repository persists reconciliation records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SisteGrensesnitt returns the record with the latest window end, or nil.
func (r *Repository) SisteGrensesnitt(ctx context.Context, sakType utbetaling.SakType) (*avstemming.Grensesnittavstemming, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("avstemming repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, sak_type, periode_fra, periode_til, antall_oppdrag, avstemmingsdata, opprettet
FROM grensesnittavstemming
WHERE sak_type = $1
ORDER BY periode_til DESC
LIMIT 1`, string(sakType))
	return scanGrensesnitt(row)
}

// LagreGrensesnitt inserts a record. A second record for the same window end is rejected.
func (r *Repository) LagreGrensesnitt(ctx context.Context, a *avstemming.Grensesnittavstemming) error {
	if r == nil || r.db == nil {
		return errors.New("avstemming repo: nil db")
	}
	if a == nil {
		return avstemming.ErrNilAvstemming
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO grensesnittavstemming (id, sak_type, periode_fra, periode_til, antall_oppdrag, avstemmingsdata, opprettet)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, string(a.SakType), a.PeriodeFra, a.PeriodeTil, a.AntallOppdrag, a.Avstemmingsdata, a.Opprettet,
	)
	if isUniqueViolation(err) {
		return avstemming.ErrAvstemmingFinnes
	}
	return err
}

// ListGrensesnitt returns records newest first.
func (r *Repository) ListGrensesnitt(ctx context.Context, sakType utbetaling.SakType, limit int) ([]avstemming.Grensesnittavstemming, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("avstemming repo: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, sak_type, periode_fra, periode_til, antall_oppdrag, avstemmingsdata, opprettet
FROM grensesnittavstemming
WHERE sak_type = $1
ORDER BY periode_til DESC
LIMIT $2`, string(sakType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []avstemming.Grensesnittavstemming
	for rows.Next() {
		a, err := scanGrensesnitt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// SisteKonsistens returns the most recently created record, or nil.
func (r *Repository) SisteKonsistens(ctx context.Context, sakType utbetaling.SakType) (*avstemming.Konsistensavstemming, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("avstemming repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, sak_type, dato, opprettet_foer, antall_oppdrag, avstemmingsdata, snapshot, opprettet
FROM konsistensavstemming
WHERE sak_type = $1
ORDER BY opprettet DESC
LIMIT 1`, string(sakType))

	var (
		a        avstemming.Konsistensavstemming
		sakTypeS string
		snapshot []byte
	)
	err := row.Scan(&a.ID, &sakTypeS, &a.Dato, &a.OpprettetFoer, &a.AntallOppdrag, &a.Avstemmingsdata, &snapshot, &a.Opprettet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &a.Snapshot); err != nil {
			return nil, err
		}
	}
	a.SakType = utbetaling.SakType(sakTypeS)
	a.Dato = utbetaling.Dato(a.Dato)
	a.OpprettetFoer = a.OpprettetFoer.UTC()
	a.Opprettet = a.Opprettet.UTC()
	return &a, nil
}

// LagreKonsistens inserts a record with its snapshot.
func (r *Repository) LagreKonsistens(ctx context.Context, a *avstemming.Konsistensavstemming) error {
	if r == nil || r.db == nil {
		return errors.New("avstemming repo: nil db")
	}
	if a == nil {
		return avstemming.ErrNilAvstemming
	}
	snapshot := a.Snapshot
	if snapshot == nil {
		snapshot = []avstemming.OppdragSnapshot{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO konsistensavstemming (id, sak_type, dato, opprettet_foer, antall_oppdrag, avstemmingsdata, snapshot, opprettet)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, string(a.SakType), a.Dato, a.OpprettetFoer, a.AntallOppdrag, a.Avstemmingsdata, string(payload), a.Opprettet,
	)
	if isUniqueViolation(err) {
		return avstemming.ErrAvstemmingFinnes
	}
	return err
}

func scanGrensesnitt(row rowScanner) (*avstemming.Grensesnittavstemming, error) {
	var (
		a       avstemming.Grensesnittavstemming
		sakType string
	)
	err := row.Scan(&a.ID, &sakType, &a.PeriodeFra, &a.PeriodeTil, &a.AntallOppdrag, &a.Avstemmingsdata, &a.Opprettet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.SakType = utbetaling.SakType(sakType)
	a.PeriodeFra = a.PeriodeFra.UTC()
	a.PeriodeTil = a.PeriodeTil.UTC()
	a.Opprettet = a.Opprettet.UTC()
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
