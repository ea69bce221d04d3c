package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	avstemmingrepo "etterlatte-utbetaling/internal/avstemming/infrastructure/postgres"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"

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
	if !tableExists(db, "grensesnittavstemming") || !tableExists(db, "konsistensavstemming") {
		t.Skip("missing tables; run migrations")
	}
	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM grensesnittavstemming")
	_, _ = db.ExecContext(ctx, "DELETE FROM konsistensavstemming")
	return db
}

func TestGrensesnitt_LatestAndDuplicateBoundary(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := avstemmingrepo.NewRepository(db)

	first := &avstemming.Grensesnittavstemming{
		ID:              uuid.NewString(),
		SakType:         utbetaling.SakTypeBarnepensjon,
		PeriodeFra:      avstemming.Epoch,
		PeriodeTil:      time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
		AntallOppdrag:   3,
		Avstemmingsdata: "<avstemmingsdata/>",
		Opprettet:       time.Date(2024, time.March, 5, 10, 1, 0, 0, time.UTC),
	}
	if err := repo.LagreGrensesnitt(ctx, first); err != nil {
		t.Fatalf("lagre: %v", err)
	}
	second := *first
	second.ID = uuid.NewString()
	second.PeriodeFra = first.PeriodeTil
	second.PeriodeTil = first.PeriodeTil.Add(time.Hour)
	if err := repo.LagreGrensesnitt(ctx, &second); err != nil {
		t.Fatalf("lagre second: %v", err)
	}

	dup := second
	dup.ID = uuid.NewString()
	if err := repo.LagreGrensesnitt(ctx, &dup); !errors.Is(err, avstemming.ErrAvstemmingFinnes) {
		t.Fatalf("expected ErrAvstemmingFinnes, got %v", err)
	}

	siste, err := repo.SisteGrensesnitt(ctx, utbetaling.SakTypeBarnepensjon)
	if err != nil {
		t.Fatalf("siste: %v", err)
	}
	if siste == nil || !siste.PeriodeTil.Equal(second.PeriodeTil) {
		t.Fatalf("expected latest window end %s, got %+v", second.PeriodeTil, siste)
	}

	none, err := repo.SisteGrensesnitt(ctx, utbetaling.SakTypeOmstillingsstoenad)
	if err != nil {
		t.Fatalf("siste other: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no record for other saktype")
	}
}

func TestKonsistens_SnapshotRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := avstemmingrepo.NewRepository(db)

	record := &avstemming.Konsistensavstemming{
		ID:              uuid.NewString(),
		SakType:         utbetaling.SakTypeBarnepensjon,
		Dato:            utbetaling.NyDato(2024, 3, 4),
		OpprettetFoer:   utbetaling.NyDato(2024, 3, 5),
		AntallOppdrag:   1,
		Avstemmingsdata: "<konsistensavstemmingsdata/>",
		Snapshot: []avstemming.OppdragSnapshot{{
			SakID:              1001,
			StoenadsmottakerID: "12345678901",
			Linjer:             []avstemming.SnapshotLinje{{ID: 7, Fra: "2024-01-01", Beloep: "2500.00"}},
		}},
		Opprettet: time.Date(2024, time.March, 4, 5, 0, 0, 0, time.UTC),
	}
	if err := repo.LagreKonsistens(ctx, record); err != nil {
		t.Fatalf("lagre: %v", err)
	}
	got, err := repo.SisteKonsistens(ctx, utbetaling.SakTypeBarnepensjon)
	if err != nil {
		t.Fatalf("siste: %v", err)
	}
	if got == nil || got.ID != record.ID {
		t.Fatalf("expected record %s, got %+v", record.ID, got)
	}
	if !got.Dato.Equal(record.Dato) {
		t.Fatalf("expected dato %s, got %s", record.Dato, got.Dato)
	}
	if len(got.Snapshot) != 1 || len(got.Snapshot[0].Linjer) != 1 || got.Snapshot[0].Linjer[0].ID != 7 {
		t.Fatalf("unexpected snapshot: %+v", got.Snapshot)
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
