// Package grensesnitt builds and runs interface reconciliations.
package grensesnitt

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"etterlatte-utbetaling/internal/avstemming/wire"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// DefaultDetaljerPerMelding is the largest number of details the ledger accepts per DATA message.
const DefaultDetaljerPerMelding = 70

// Bucket is the outcome group an instruction is counted in.
type Bucket string

const (
	BucketGodkjent Bucket = "godkjent"
	BucketVarsel   Bucket = "varsel"
	BucketAvvist   Bucket = "avvist"
	BucketMangler  Bucket = "mangler"
)

// BucketFor returns the bucket for a status.
func BucketFor(status utbetaling.Status) Bucket {
	switch status {
	case utbetaling.StatusGodkjent:
		return BucketGodkjent
	case utbetaling.StatusGodkjentMedFeil:
		return BucketVarsel
	case utbetaling.StatusAvvist, utbetaling.StatusFeilet:
		return BucketAvvist
	default:
		return BucketMangler
	}
}

// Sum is a count and a signed amount.
type Sum struct {
	Antall int
	Beloep decimal.Decimal
}

func (s *Sum) add(beloep decimal.Decimal) {
	s.Antall++
	s.Beloep = s.Beloep.Add(beloep)
}

// Rapport is a built interface reconciliation.
type Rapport struct {
	Meldinger []wire.Avstemmingsdata
	Total     Sum
	Grunnlag  map[Bucket]Sum
	Detaljer  []wire.Detalj
}

// Builder renders reconciliation messages.
type Builder struct {
	KodeKomponent      string
	DetaljerPerMelding int
	Location           *time.Location
}

// NewBuilder constructs a builder with ledger defaults.
func NewBuilder(kodeKomponent string, detaljerPerMelding int) Builder {
	if kodeKomponent == "" {
		kodeKomponent = "ETTERLAT"
	}
	if detaljerPerMelding <= 0 {
		detaljerPerMelding = DefaultDetaljerPerMelding
	}
	return Builder{KodeKomponent: kodeKomponent, DetaljerPerMelding: detaljerPerMelding, Location: oppdrag.Tidssone()}
}

// Bygg renders START, one or more DATA and AVSL for the instructions in [fra, til).
func (b Builder) Bygg(avstemmingID string, sakType utbetaling.SakType, fra, til time.Time, utbetalinger []utbetaling.Utbetaling) Rapport {
	rapport := Rapport{Grunnlag: map[Bucket]Sum{}}
	for _, bucket := range []Bucket{BucketGodkjent, BucketVarsel, BucketAvvist, BucketMangler} {
		rapport.Grunnlag[bucket] = Sum{Beloep: decimal.Zero}
	}
	rapport.Total.Beloep = decimal.Zero

	periodeFom, periodeTom := fra, til
	for i := range utbetalinger {
		u := &utbetalinger[i]
		beloep := u.Beloep()
		rapport.Total.add(beloep)
		bucket := BucketFor(u.Status())
		sum := rapport.Grunnlag[bucket]
		sum.add(beloep)
		rapport.Grunnlag[bucket] = sum
		if detalj, ok := b.detalj(u, bucket); ok {
			rapport.Detaljer = append(rapport.Detaljer, detalj)
		}
		if i == 0 || u.Avstemmingsnoekkel.Before(periodeFom) {
			periodeFom = u.Avstemmingsnoekkel
		}
		if i == 0 || u.Avstemmingsnoekkel.After(periodeTom) {
			periodeTom = u.Avstemmingsnoekkel
		}
	}

	aksjon := wire.Aksjon{
		KildeType:                wire.KildeTypeAvlevert,
		AvstemmingType:           wire.AvstemmingTypeGrensesnitt,
		AvleverendeKomponentKode: b.KodeKomponent,
		MottakendeKomponentKode:  wire.MottakendeKomponent,
		UnderkomponentKode:       sakType.Fagomraade(),
		NokkelFom:                oppdrag.FormaterTidspunkt(fra, b.Location),
		NokkelTom:                oppdrag.FormaterTidspunkt(til, b.Location),
		AvleverendeAvstemmingID:  avstemmingID,
		BrukerID:                 b.KodeKomponent,
	}
	melding := func(t wire.AksjonType) wire.Avstemmingsdata {
		a := aksjon
		a.AksjonType = t
		return wire.Avstemmingsdata{Aksjon: a}
	}

	rapport.Meldinger = append(rapport.Meldinger, melding(wire.AksjonStart))
	chunks := chunk(rapport.Detaljer, b.DetaljerPerMelding)
	for i, detaljer := range chunks {
		data := melding(wire.AksjonData)
		data.Detalj = detaljer
		if i == 0 {
			data.Total = &wire.Total{
				TotalAntall: rapport.Total.Antall,
				TotalBelop:  abs(rapport.Total.Beloep),
				Fortegn:     wire.Fortegn(rapport.Total.Beloep),
			}
			data.Periode = &wire.Periode{
				DatoAvstemtFom: periodeFom.In(b.Location).Format(wire.PeriodeFormat),
				DatoAvstemtTom: periodeTom.In(b.Location).Format(wire.PeriodeFormat),
			}
			data.Grunnlag = grunnlag(rapport.Grunnlag)
		}
		rapport.Meldinger = append(rapport.Meldinger, data)
	}
	rapport.Meldinger = append(rapport.Meldinger, melding(wire.AksjonAvsl))
	return rapport
}

func (b Builder) detalj(u *utbetaling.Utbetaling, bucket Bucket) (wire.Detalj, bool) {
	var t wire.DetaljType
	switch bucket {
	case BucketVarsel:
		t = wire.DetaljVarsel
	case BucketAvvist:
		t = wire.DetaljAvvist
	case BucketMangler:
		t = wire.DetaljMangler
	default:
		return wire.Detalj{}, false
	}
	d := wire.Detalj{
		DetaljType:                   t,
		Offnr:                        u.StoenadsmottakerID,
		AvleverendeTransaksjonNokkel: strconv.FormatInt(u.SakID, 10),
		Tidspunkt:                    oppdrag.FormaterTidspunkt(u.Avstemmingsnoekkel, b.Location),
	}
	if u.Kvittering != nil {
		d.MeldingKode = u.Kvittering.Kode
		d.Alvorlighetsgrad = u.Kvittering.Alvorlighetsgrad
		d.TekstMelding = u.Kvittering.Beskrivelse
	}
	return d, true
}

func grunnlag(sums map[Bucket]Sum) *wire.Grunnlag {
	g, v, a, m := sums[BucketGodkjent], sums[BucketVarsel], sums[BucketAvvist], sums[BucketMangler]
	return &wire.Grunnlag{
		GodkjentAntall:  g.Antall,
		GodkjentBelop:   abs(g.Beloep),
		GodkjentFortegn: wire.Fortegn(g.Beloep),
		VarselAntall:    v.Antall,
		VarselBelop:     abs(v.Beloep),
		VarselFortegn:   wire.Fortegn(v.Beloep),
		AvvistAntall:    a.Antall,
		AvvistBelop:     abs(a.Beloep),
		AvvistFortegn:   wire.Fortegn(a.Beloep),
		ManglerAntall:   m.Antall,
		ManglerBelop:    abs(m.Beloep),
		ManglerFortegn:  wire.Fortegn(m.Beloep),
	}
}

func abs(d decimal.Decimal) string {
	return d.Abs().StringFixed(2)
}

// chunk splits details into groups of at most size. An empty list yields one empty group.
func chunk(detaljer []wire.Detalj, size int) [][]wire.Detalj {
	if len(detaljer) == 0 {
		return [][]wire.Detalj{nil}
	}
	var result [][]wire.Detalj
	for start := 0; start < len(detaljer); start += size {
		end := start + size
		if end > len(detaljer) {
			end = len(detaljer)
		}
		result = append(result, detaljer[start:end])
	}
	return result
}
