package oppdrag

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

func beloep(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func testUtbetaling() *utbetaling.Utbetaling {
	opprettet := time.Date(2024, 2, 1, 9, 30, 0, 123456000, time.UTC)
	til := utbetaling.NyDato(2024, 2, 29)
	return &utbetaling.Utbetaling{
		ID:                 "b6f7b0a4-0d5c-4b8e-8f5b-0a1c2d3e4f50",
		SakID:              1001,
		VedtakID:           42,
		BehandlingID:       "9a2b8d0e-3f49-4a32-8a2e-0c1d5a7b6e11",
		SakType:            utbetaling.SakTypeBarnepensjon,
		StoenadsmottakerID: "12345678901",
		Saksbehandler:      "Z123456",
		Attestant:          "Z654321",
		Avstemmingsnoekkel: opprettet,
		Opprettet:          opprettet,
		Linjer: []utbetaling.Utbetalingslinje{
			{
				ID:                  1,
				Type:                utbetaling.LinjeTypeUtbetaling,
				SakID:               1001,
				Periode:             utbetaling.Periode{Fra: utbetaling.NyDato(2024, 1, 1), Til: &til},
				Beloep:              beloep("2500"),
				Klassifikasjonskode: utbetaling.SakTypeBarnepensjon.Klassifikasjonskode(),
				Opprettet:           opprettet,
			},
			{
				ID:                  2,
				Type:                utbetaling.LinjeTypeUtbetaling,
				SakID:               1001,
				Periode:             utbetaling.Periode{Fra: utbetaling.NyDato(2024, 3, 1)},
				Beloep:              beloep("3000.5"),
				Klassifikasjonskode: utbetaling.SakTypeBarnepensjon.Klassifikasjonskode(),
				Opprettet:           opprettet,
				ErstatterID:         int64Ptr(1),
			},
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder()
	u := testUtbetaling()
	u.Linjer[1].ErstatterID = nil

	data, err := enc.Encode(u)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	decoded, err := enc.Codec().Decode(data)
	require.NoError(t, err)
	h := decoded.Oppdrag110
	assert.Equal(t, "1001", h.FagsystemID)
	assert.Equal(t, "12345678901", h.OppdragGjelderID)
	assert.Equal(t, "NY", h.KodeEndring)
	assert.Equal(t, "BARNEPE", h.KodeFagomraade)
	assert.Equal(t, "2024-02-01-10.30.00.123456", h.Avstemming115.NokkelAvstemming)
	require.Len(t, h.OppdragsLinje150, 2)
	assert.Equal(t, "2500.00", h.OppdragsLinje150[0].Sats)
	assert.Equal(t, "2024-01-01", h.OppdragsLinje150[0].DatoVedtakFom)
	assert.Equal(t, "2024-02-29", h.OppdragsLinje150[0].DatoVedtakTom)
	assert.Equal(t, "3000.50", h.OppdragsLinje150[1].Sats)
	assert.Empty(t, h.OppdragsLinje150[1].DatoVedtakTom)
	assert.Equal(t, "42", h.OppdragsLinje150[1].VedtakID)
}

func TestEncodeIsDeterministic(t *testing.T) {
	enc := NewEncoder()
	first, err := enc.Encode(testUtbetaling())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := enc.Encode(testUtbetaling())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodeReferencesSupersededLine(t *testing.T) {
	o, err := NewEncoder().Bygg(testUtbetaling())
	require.NoError(t, err)
	assert.Equal(t, "ENDR", o.Oppdrag110.KodeEndring)
	linje := o.Oppdrag110.OppdragsLinje150[1]
	assert.Equal(t, "1", linje.RefDelytelseID)
	assert.Equal(t, "1001", linje.RefFagsystemID)
	assert.Empty(t, o.Oppdrag110.OppdragsLinje150[0].RefDelytelseID)
}

func TestEncodeOpphoer(t *testing.T) {
	u := testUtbetaling()
	u.Linjer = []utbetaling.Utbetalingslinje{{
		ID:                  3,
		Type:                utbetaling.LinjeTypeOpphoer,
		SakID:               1001,
		Periode:             utbetaling.Periode{Fra: utbetaling.NyDato(2024, 5, 1)},
		Klassifikasjonskode: utbetaling.SakTypeBarnepensjon.Klassifikasjonskode(),
		Opprettet:           u.Opprettet,
		ErstatterID:         int64Ptr(2),
	}}
	o, err := NewEncoder().Bygg(u)
	require.NoError(t, err)
	linje := o.Oppdrag110.OppdragsLinje150[0]
	assert.Equal(t, "OPPH", linje.KodeStatusLinje)
	assert.Equal(t, "2024-05-01", linje.DatoStatusFom)
	assert.Empty(t, linje.Sats)
	assert.Equal(t, "2", linje.RefDelytelseID)
}

func TestEncodeWithoutLinesFails(t *testing.T) {
	u := testUtbetaling()
	u.Linjer = nil
	_, err := NewEncoder().Encode(u)
	assert.True(t, errors.Is(err, ErrIngenLinjer))
}

func TestEncodeOmstillingsstoenad(t *testing.T) {
	u := testUtbetaling()
	u.SakType = utbetaling.SakTypeOmstillingsstoenad
	o, err := NewEncoder(WithKodeKomponent("EY"), WithEnhet("4862")).Bygg(u)
	require.NoError(t, err)
	assert.Equal(t, "OMSTILL", o.Oppdrag110.KodeFagomraade)
	assert.Equal(t, "EY", o.Oppdrag110.Avstemming115.KodeKomponent)
	assert.Equal(t, "4862", o.Oppdrag110.OppdragsEnhet120[0].Enhet)
}
