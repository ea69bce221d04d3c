package utbetaling

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusFraAlvorlighetsgrad(t *testing.T) {
	assert.Equal(t, StatusGodkjent, StatusFraAlvorlighetsgrad("00"))
	assert.Equal(t, StatusGodkjentMedFeil, StatusFraAlvorlighetsgrad("04"))
	assert.Equal(t, StatusAvvist, StatusFraAlvorlighetsgrad("08"))
	assert.Equal(t, StatusFeilet, StatusFraAlvorlighetsgrad("12"))
	assert.Equal(t, StatusFeilet, StatusFraAlvorlighetsgrad("99"))
	assert.Equal(t, StatusFeilet, StatusFraAlvorlighetsgrad(""))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusSendt.Terminal())
	for _, s := range []Status{StatusGodkjent, StatusGodkjentMedFeil, StatusAvvist, StatusFeilet} {
		assert.True(t, s.Terminal(), s)
	}
}

func TestUtbetalingStatusFraSisteHendelse(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &Utbetaling{Hendelser: []UtbetalingHendelse{
		{Status: StatusGodkjent, Tidspunkt: t0.Add(time.Minute)},
		{Status: StatusSendt, Tidspunkt: t0},
	}}
	assert.Equal(t, StatusGodkjent, u.Status())
	assert.Equal(t, StatusSendt, (&Utbetaling{}).Status())
}

func TestUtbetalingBeloepOgForsteForSak(t *testing.T) {
	a := decimal.RequireFromString("100.50")
	b := decimal.RequireFromString("-20.25")
	forrige := int64(7)
	u := &Utbetaling{Linjer: []Utbetalingslinje{
		{ID: 8, Type: LinjeTypeUtbetaling, Beloep: &a},
		{ID: 9, Type: LinjeTypeUtbetaling, Beloep: &b},
	}}
	assert.True(t, u.Beloep().Equal(decimal.RequireFromString("80.25")))
	assert.True(t, u.ForsteForSak())
	egen := int64(8)
	u.Linjer[1].ErstatterID = &egen
	assert.True(t, u.ForsteForSak(), "chained within the instruction")
	u.Linjer[0].ErstatterID = &forrige
	assert.False(t, u.ForsteForSak())
}

func TestLinjeValidate(t *testing.T) {
	beloep := decimal.NewFromInt(10)
	forrige := int64(1)
	ok := Utbetalingslinje{ID: 2, Type: LinjeTypeUtbetaling, Periode: Periode{Fra: NyDato(2024, 1, 1)}, Beloep: &beloep}
	assert.NoError(t, ok.Validate())

	opphoer := Utbetalingslinje{ID: 3, Type: LinjeTypeOpphoer, Periode: Periode{Fra: NyDato(2024, 1, 1)}, ErstatterID: &forrige}
	assert.NoError(t, opphoer.Validate())

	opphoer.Beloep = &beloep
	assert.Error(t, opphoer.Validate())

	utenBeloep := ok
	utenBeloep.Beloep = nil
	assert.Error(t, utenBeloep.Validate())
}
