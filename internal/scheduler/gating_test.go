package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etterlatte-utbetaling/internal/avstemming/grensesnitt"
	avstemmingmemory "etterlatte-utbetaling/internal/avstemming/infrastructure/memory"
	"etterlatte-utbetaling/internal/leader"
	"etterlatte-utbetaling/internal/scheduler"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
	"etterlatte-utbetaling/internal/utbetaling/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingSender struct {
	reports [][][]byte
}

func (s *recordingSender) SendAvstemming(_ context.Context, _ utbetaling.SakType, meldinger [][]byte) error {
	s.reports = append(s.reports, meldinger)
	return nil
}

func TestGrensesnittavstemmingRunsOnlyOnLeader(t *testing.T) {
	ctx := context.Background()
	opprettet := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	beloep := decimal.NewFromInt(2500)
	utbetalinger := memory.NewRepository()
	require.NoError(t, utbetalinger.Opprett(ctx, &utbetaling.Utbetaling{
		ID:                 "0c6c5a8e-7f1b-4d57-9a3e-2b8f1d4c6e01",
		SakID:              1001,
		VedtakID:           42,
		SakType:            utbetaling.SakTypeBarnepensjon,
		StoenadsmottakerID: "12345678901",
		Saksbehandler:      "Z123456",
		Attestant:          "Z654321",
		Avstemmingsnoekkel: opprettet,
		Opprettet:          opprettet,
		Linjer: []utbetaling.Utbetalingslinje{{
			ID:                  1,
			Type:                utbetaling.LinjeTypeUtbetaling,
			UtbetalingID:        "0c6c5a8e-7f1b-4d57-9a3e-2b8f1d4c6e01",
			SakID:               1001,
			Periode:             utbetaling.Periode{Fra: utbetaling.NyDato(2024, 1, 1)},
			Beloep:              &beloep,
			Klassifikasjonskode: utbetaling.SakTypeBarnepensjon.Klassifikasjonskode(),
			Opprettet:           opprettet,
		}},
	}))
	avstemminger := avstemmingmemory.NewRepository()
	sender := &recordingSender{}
	service, err := grensesnitt.NewService(utbetalinger, avstemminger, sender,
		grensesnitt.NewBuilder("ETTERLAT", 70),
		fixedClock{now: time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)

	elector := leader.NewStatic(false)
	s, err := scheduler.New(elector, nil)
	require.NoError(t, err)
	require.NoError(t, s.Register(scheduler.Job{
		Name:      "grensesnittavstemming",
		Spec:      "0 * * * *",
		Singleton: true,
		Run: func(ctx context.Context) error {
			return service.RunAll(ctx, []utbetaling.SakType{utbetaling.SakTypeBarnepensjon})
		},
	}))

	assert.False(t, s.Tick(ctx, "grensesnittavstemming"))
	assert.Empty(t, sender.reports)
	records, err := avstemminger.ListGrensesnitt(ctx, utbetaling.SakTypeBarnepensjon, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	elector.Set(true)
	assert.True(t, s.Tick(ctx, "grensesnittavstemming"))
	assert.Len(t, sender.reports, 1)
	records, err = avstemminger.ListGrensesnitt(ctx, utbetaling.SakTypeBarnepensjon, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].AntallOppdrag)
}
