package konsistens

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

func linje(id int64, fra, opprettet time.Time, erstatter *int64) utbetaling.Utbetalingslinje {
	b := decimal.NewFromInt(1000)
	return utbetaling.Utbetalingslinje{
		ID:          id,
		Type:        utbetaling.LinjeTypeUtbetaling,
		SakID:       1,
		Periode:     utbetaling.Periode{Fra: fra},
		Beloep:      &b,
		Opprettet:   opprettet,
		ErstatterID: erstatter,
	}
}

func ref(id int64) *int64 { return &id }

func ids(linjer []utbetaling.Utbetalingslinje) []int64 {
	result := []int64{}
	for _, l := range linjer {
		result = append(result, l.ID)
	}
	return result
}

var langtFrem = utbetaling.NyDato(9999, 12, 31)

func kjede() []utbetaling.Utbetalingslinje {
	return []utbetaling.Utbetalingslinje{
		linje(1, utbetaling.NyDato(1998, 1, 1), utbetaling.NyDato(1997, 12, 16), nil),
		linje(2, utbetaling.NyDato(1998, 6, 1), utbetaling.NyDato(1998, 1, 16), ref(1)),
		linje(3, utbetaling.NyDato(1997, 11, 1), utbetaling.NyDato(1998, 9, 1), ref(2)),
	}
}

func TestGjeldendeLinjerRetroactiveCorrection(t *testing.T) {
	cases := map[string]struct {
		dato time.Time
		want []int64
	}{
		"langt frem": {dato: langtFrem, want: []int64{3}},
		"1998-02-25": {dato: utbetaling.NyDato(1998, 2, 25), want: []int64{1, 2}},
		"1998-07-25": {dato: utbetaling.NyDato(1998, 7, 25), want: []int64{2}},
		"1998-01-02": {dato: utbetaling.NyDato(1998, 1, 2), want: []int64{1}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(GjeldendeLinjer(kjede(), tc.dato)))
		})
	}
}

func TestGjeldendeLinjerOpphoer(t *testing.T) {
	linjer := kjede()
	linjer[2] = utbetaling.Utbetalingslinje{
		ID:          3,
		Type:        utbetaling.LinjeTypeOpphoer,
		SakID:       1,
		Periode:     utbetaling.Periode{Fra: utbetaling.NyDato(2000, 11, 1)},
		Opprettet:   utbetaling.NyDato(1998, 9, 1),
		ErstatterID: ref(2),
	}
	cases := map[string]struct {
		dato time.Time
		want []int64
	}{
		"langt frem": {dato: langtFrem, want: []int64{}},
		"1998-02-25": {dato: utbetaling.NyDato(1998, 2, 25), want: []int64{1, 2}},
		"1998-07-25": {dato: utbetaling.NyDato(1998, 7, 25), want: []int64{2}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(GjeldendeLinjer(linjer, tc.dato)))
		})
	}
}

func TestGjeldendeLinjerCreatedOnDatoIsKnown(t *testing.T) {
	linjer := []utbetaling.Utbetalingslinje{
		linje(1, utbetaling.NyDato(2024, 1, 1), time.Date(2024, 3, 5, 22, 59, 0, 0, time.UTC), nil),
	}
	assert.Equal(t, []int64{1}, ids(GjeldendeLinjer(linjer, utbetaling.NyDato(2024, 3, 5))))
	assert.Empty(t, GjeldendeLinjer(linjer, utbetaling.NyDato(2024, 3, 4)))
}

func TestGjeldendeLinjerCreatedAfterLocalMidnightIsUnknown(t *testing.T) {
	linjer := []utbetaling.Utbetalingslinje{
		linje(1, utbetaling.NyDato(2024, 1, 1), time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC), nil),
	}
	assert.Empty(t, GjeldendeLinjer(linjer, utbetaling.NyDato(2024, 3, 1)))
	assert.Equal(t, []int64{1}, ids(GjeldendeLinjer(linjer, utbetaling.NyDato(2024, 3, 2))))
}

func TestKjentFoer(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	assert.Equal(t, time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC), KjentFoer(utbetaling.NyDato(2024, 3, 1), oslo))
	assert.Equal(t, time.Date(2024, 7, 1, 22, 0, 0, 0, time.UTC), KjentFoer(utbetaling.NyDato(2024, 7, 1), oslo))
	assert.Equal(t, utbetaling.NyDato(2024, 3, 2), KjentFoer(utbetaling.NyDato(2024, 3, 1), nil))
}

func TestGjeldendeLinjerClosedPeriodEnds(t *testing.T) {
	til := utbetaling.NyDato(2024, 2, 29)
	l := linje(1, utbetaling.NyDato(2024, 1, 1), utbetaling.NyDato(2023, 12, 1), nil)
	l.Periode.Til = &til

	assert.Equal(t, []int64{1}, ids(GjeldendeLinjer([]utbetaling.Utbetalingslinje{l}, til)))
	assert.Empty(t, GjeldendeLinjer([]utbetaling.Utbetalingslinje{l}, til.AddDate(0, 0, 1)))
}
