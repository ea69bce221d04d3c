package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
	utbetalingrepo "etterlatte-utbetaling/internal/utbetaling/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, table := range []string{"utbetaling", "utbetalingslinje", "utbetalingshendelse", "kvittering"} {
		if !tableExists(db, table) {
			t.Skip("missing tables; run migrations")
		}
	}
	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM kvittering")
	_, _ = db.ExecContext(ctx, "DELETE FROM utbetalingshendelse")
	_, _ = db.ExecContext(ctx, "DELETE FROM utbetalingslinje")
	_, _ = db.ExecContext(ctx, "DELETE FROM utbetaling")
	return db
}

func nyUtbetaling(t *testing.T, repo *utbetalingrepo.Repository, vedtakID, sakID int64, opprettet time.Time) *utbetaling.Utbetaling {
	t.Helper()
	ids, err := repo.ReserverLinjeIDer(context.Background(), 1)
	if err != nil {
		t.Fatalf("reserve ids: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
	id := uuid.NewString()
	beloep := decimal.RequireFromString("2500.00")
	return &utbetaling.Utbetaling{
		ID:                 id,
		SakID:              sakID,
		VedtakID:           vedtakID,
		BehandlingID:       uuid.NewString(),
		SakType:            utbetaling.SakTypeBarnepensjon,
		StoenadsmottakerID: "12345678901",
		Saksbehandler:      "Z123456",
		Attestant:          "Z654321",
		Avstemmingsnoekkel: opprettet,
		Opprettet:          opprettet,
		Endret:             opprettet,
		Oppdrag:            []byte("<oppdrag/>"),
		Linjer: []utbetaling.Utbetalingslinje{{
			ID:                  ids[0],
			Type:                utbetaling.LinjeTypeUtbetaling,
			UtbetalingID:        id,
			SakID:               sakID,
			Periode:             utbetaling.Periode{Fra: utbetaling.NyDato(2024, 1, 1)},
			Beloep:              &beloep,
			Klassifikasjonskode: utbetaling.SakTypeBarnepensjon.Klassifikasjonskode(),
			Opprettet:           opprettet,
		}},
	}
}

func TestStore_OpprettAndHent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := utbetalingrepo.NewRepository(db)
	opprettet := time.Date(2024, time.March, 5, 10, 0, 0, 123456000, time.UTC)

	u := nyUtbetaling(t, repo, 42, 1001, opprettet)
	if err := repo.Opprett(ctx, u); err != nil {
		t.Fatalf("opprett: %v", err)
	}
	if err := repo.Opprett(ctx, nyUtbetaling(t, repo, 42, 1001, opprettet)); !errors.Is(err, utbetaling.ErrUtbetalingFinnes) {
		t.Fatalf("expected ErrUtbetalingFinnes, got %v", err)
	}

	got, err := repo.HentForVedtak(ctx, 42)
	if err != nil {
		t.Fatalf("hent: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("expected stored utbetaling %s, got %+v", u.ID, got)
	}
	if got.Status() != utbetaling.StatusSendt {
		t.Fatalf("expected SENDT, got %s", got.Status())
	}
	if !got.Avstemmingsnoekkel.Equal(opprettet) {
		t.Fatalf("expected avstemmingsnoekkel %s, got %s", opprettet, got.Avstemmingsnoekkel)
	}
	if len(got.Linjer) != 1 || !got.Linjer[0].Beloep.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("unexpected linjer: %+v", got.Linjer)
	}

	missing, err := repo.HentForVedtak(ctx, 999)
	if err != nil {
		t.Fatalf("hent missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown vedtak")
	}
}

func TestStore_UpubliserteAndMarkerPublisert(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := utbetalingrepo.NewRepository(db)
	opprettet := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	u := nyUtbetaling(t, repo, 43, 1002, opprettet)
	if err := repo.Opprett(ctx, u); err != nil {
		t.Fatalf("opprett: %v", err)
	}
	pending, err := repo.HentUpubliserte(ctx, opprettet.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("upubliserte: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 unpublished, got %d", len(pending))
	}
	if err := repo.MarkerPublisert(ctx, u.ID, opprettet.Add(time.Second)); err != nil {
		t.Fatalf("marker publisert: %v", err)
	}
	pending, err = repo.HentUpubliserte(ctx, opprettet.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("upubliserte: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected 0 unpublished, got %d", len(pending))
	}
}

func TestStore_ConcurrentKvitteringAppliedOnce(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := utbetalingrepo.NewRepository(db)
	opprettet := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	u := nyUtbetaling(t, repo, 44, 1003, opprettet)
	if err := repo.Opprett(ctx, u); err != nil {
		t.Fatalf("opprett: %v", err)
	}

	statuses := []utbetaling.Status{utbetaling.StatusGodkjent, utbetaling.StatusAvvist}
	errs := make([]error, len(statuses))
	var wg sync.WaitGroup
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status utbetaling.Status) {
			defer wg.Done()
			errs[i] = repo.LagreKvittering(ctx, u.ID, utbetaling.Kvittering{
				Melding:          []byte("<kvittering/>"),
				Alvorlighetsgrad: "00",
				Mottatt:          opprettet.Add(time.Minute),
			}, status)
		}(i, status)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, utbetaling.ErrAlleredeKvittert):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied receipt, got %d", applied)
	}

	var terminal int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM utbetalingshendelse WHERE utbetaling_id = $1 AND status <> 'SENDT'", u.ID).Scan(&terminal); err != nil {
		t.Fatalf("count hendelser: %v", err)
	}
	if terminal != 1 {
		t.Fatalf("expected 1 terminal hendelse, got %d", terminal)
	}
}

func TestStore_HentForSakReturnsHistoryOldestFirst(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := utbetalingrepo.NewRepository(db)
	t0 := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	first := nyUtbetaling(t, repo, 50, 1004, t0)
	second := nyUtbetaling(t, repo, 51, 1004, t0.Add(time.Hour))
	other := nyUtbetaling(t, repo, 52, 1005, t0.Add(30*time.Minute))
	for _, u := range []*utbetaling.Utbetaling{second, first, other} {
		if err := repo.Opprett(ctx, u); err != nil {
			t.Fatalf("opprett: %v", err)
		}
	}
	if err := repo.LagreKvittering(ctx, first.ID, utbetaling.Kvittering{
		Melding:          []byte("<kvittering/>"),
		Alvorlighetsgrad: "08",
		Mottatt:          t0.Add(time.Minute),
	}, utbetaling.StatusAvvist); err != nil {
		t.Fatalf("lagre kvittering: %v", err)
	}

	got, err := repo.HentForSak(ctx, 1004)
	if err != nil {
		t.Fatalf("hent for sak: %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected [%s %s], got %+v", first.ID, second.ID, got)
	}
	if got[0].Status() != utbetaling.StatusAvvist || got[1].Status() != utbetaling.StatusSendt {
		t.Fatalf("unexpected statuses %s, %s", got[0].Status(), got[1].Status())
	}
	if len(got[0].Linjer) != 1 || got[0].Linjer[0].ID != first.Linjer[0].ID {
		t.Fatalf("unexpected linjer: %+v", got[0].Linjer)
	}

	none, err := repo.HentForSak(ctx, 9999)
	if err != nil {
		t.Fatalf("hent unknown sak: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no instructions, got %d", len(none))
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
