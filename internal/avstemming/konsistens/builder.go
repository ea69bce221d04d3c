package konsistens

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	"etterlatte-utbetaling/internal/avstemming/wire"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// DefaultOppdragPerMelding is the largest number of cases per DATA message.
const DefaultOppdragPerMelding = 70

// Sak is the effective state of one case.
type Sak struct {
	SakID              int64
	StoenadsmottakerID string
	Saksbehandler      string
	Attestant          string
	Linjer             []utbetaling.Utbetalingslinje
}

// Rapport is a built consistency reconciliation.
type Rapport struct {
	Meldinger   []wire.Konsistensavstemmingsdata
	Snapshot    []avstemming.OppdragSnapshot
	TotalAntall int
	TotalBeloep decimal.Decimal
}

// Builder renders consistency reconciliation messages.
type Builder struct {
	KodeKomponent     string
	Enhet             string
	OppdragPerMelding int
	Location          *time.Location
}

// NewBuilder constructs a builder with ledger defaults.
func NewBuilder(kodeKomponent, enhet string, oppdragPerMelding int) Builder {
	if kodeKomponent == "" {
		kodeKomponent = "ETTERLAT"
	}
	if enhet == "" {
		enhet = "4819"
	}
	if oppdragPerMelding <= 0 {
		oppdragPerMelding = DefaultOppdragPerMelding
	}
	return Builder{
		KodeKomponent:     kodeKomponent,
		Enhet:             enhet,
		OppdragPerMelding: oppdragPerMelding,
		Location:          oppdrag.Tidssone(),
	}
}

// Grupper collects the lines of accepted instructions per case and reconstructs the effective
// set as of dato. Cases without effective lines are left out.
func Grupper(utbetalinger []utbetaling.Utbetaling, dato time.Time) []Sak {
	type gruppe struct {
		siste  *utbetaling.Utbetaling
		linjer []utbetaling.Utbetalingslinje
	}
	grupper := make(map[int64]*gruppe)
	for i := range utbetalinger {
		u := &utbetalinger[i]
		g, ok := grupper[u.SakID]
		if !ok {
			g = &gruppe{}
			grupper[u.SakID] = g
		}
		if g.siste == nil || u.Opprettet.After(g.siste.Opprettet) {
			g.siste = u
		}
		g.linjer = append(g.linjer, u.Linjer...)
	}

	saker := make([]Sak, 0, len(grupper))
	for sakID, g := range grupper {
		linjer := GjeldendeLinjer(g.linjer, dato)
		if len(linjer) == 0 {
			continue
		}
		saker = append(saker, Sak{
			SakID:              sakID,
			StoenadsmottakerID: g.siste.StoenadsmottakerID,
			Saksbehandler:      g.siste.Saksbehandler,
			Attestant:          g.siste.Attestant,
			Linjer:             linjer,
		})
	}
	sort.Slice(saker, func(i, j int) bool { return saker[i].SakID < saker[j].SakID })
	return saker
}

// Bygg renders START, one or more DATA and AVSL for the cases.
func (b Builder) Bygg(avstemmingID string, sakType utbetaling.SakType, tidspunkt time.Time, saker []Sak) Rapport {
	rapport := Rapport{TotalBeloep: decimal.Zero}
	oppdragsdata := make([]wire.Oppdragsdata, 0, len(saker))
	for _, sak := range saker {
		data, snapshot, sum := b.oppdrag(sakType, sak)
		oppdragsdata = append(oppdragsdata, data)
		rapport.Snapshot = append(rapport.Snapshot, snapshot)
		rapport.TotalBeloep = rapport.TotalBeloep.Add(sum)
	}
	rapport.TotalAntall = len(oppdragsdata)

	aksjon := wire.Aksjon{
		KildeType:                wire.KildeTypeAvlevert,
		AvstemmingType:           wire.AvstemmingTypeKonsistens,
		AvleverendeKomponentKode: b.KodeKomponent,
		MottakendeKomponentKode:  wire.MottakendeKomponent,
		UnderkomponentKode:       sakType.Fagomraade(),
		TidspunktAvstemmingTom:   oppdrag.FormaterTidspunkt(tidspunkt, b.Location),
		AvleverendeAvstemmingID:  avstemmingID,
		BrukerID:                 b.KodeKomponent,
	}
	melding := func(t wire.AksjonType) wire.Konsistensavstemmingsdata {
		a := aksjon
		a.AksjonType = t
		return wire.Konsistensavstemmingsdata{Aksjonsdata: a}
	}

	rapport.Meldinger = append(rapport.Meldinger, melding(wire.AksjonStart))
	for i, gruppe := range chunk(oppdragsdata, b.OppdragPerMelding) {
		data := melding(wire.AksjonData)
		data.OppdragsListe = gruppe
		if i == 0 {
			data.Totaldata = &wire.Totaldata{
				TotalAntall: rapport.TotalAntall,
				TotalBelop:  rapport.TotalBeloep.Abs().StringFixed(2),
				Fortegn:     wire.Fortegn(rapport.TotalBeloep),
			}
		}
		rapport.Meldinger = append(rapport.Meldinger, data)
	}
	rapport.Meldinger = append(rapport.Meldinger, melding(wire.AksjonAvsl))
	return rapport
}

func (b Builder) oppdrag(sakType utbetaling.SakType, sak Sak) (wire.Oppdragsdata, avstemming.OppdragSnapshot, decimal.Decimal) {
	sum := decimal.Zero
	data := wire.Oppdragsdata{
		FagomradeKode:       sakType.Fagomraade(),
		FagsystemID:         strconv.FormatInt(sak.SakID, 10),
		Utbetalingsfrekvens: "MND",
		OppdragGjelderID:    sak.StoenadsmottakerID,
		OppdragGjelderFom:   "1900-01-01",
		SaksbehandlerID:     sak.Saksbehandler,
		OppdragsenhetListe:  []wire.Enhet{{EnhetType: "BOS", Enhet: b.Enhet, EnhetFom: "1900-01-01"}},
	}
	snapshot := avstemming.OppdragSnapshot{SakID: sak.SakID, StoenadsmottakerID: sak.StoenadsmottakerID}
	for _, l := range sak.Linjer {
		beloep := decimal.Zero
		if l.Beloep != nil {
			beloep = *l.Beloep
		}
		sum = sum.Add(beloep)
		periode := wire.VedtakPeriode{Fom: l.Periode.Fra.Format(utbetaling.DatoFormat)}
		if l.Periode.Til != nil {
			periode.Tom = l.Periode.Til.Format(utbetaling.DatoFormat)
		}
		data.OppdragslinjeListe = append(data.OppdragslinjeListe, wire.Oppdragslinje{
			DelytelseID:        strconv.FormatInt(l.ID, 10),
			KlassifikasjonKode: l.Klassifikasjonskode,
			VedtakPeriode:      periode,
			Sats:               beloep.StringFixed(2),
			SatstypeKode:       "MND",
			FradragTillegg:     wire.FortegnTillegg,
			BrukKjoreplan:      "N",
			SaksbehandlerID:    sak.Saksbehandler,
			UtbetalesTilID:     sak.StoenadsmottakerID,
			AttestantListe:     []wire.Attestant{{AttestantID: sak.Attestant}},
		})
		snapshot.Linjer = append(snapshot.Linjer, avstemming.SnapshotLinje{
			ID:                  l.ID,
			UtbetalingID:        l.UtbetalingID,
			Fra:                 periode.Fom,
			Til:                 periode.Tom,
			Beloep:              beloep.StringFixed(2),
			Klassifikasjonskode: l.Klassifikasjonskode,
		})
	}
	return data, snapshot, sum
}

func chunk(oppdrag []wire.Oppdragsdata, size int) [][]wire.Oppdragsdata {
	if len(oppdrag) == 0 {
		return [][]wire.Oppdragsdata{nil}
	}
	var result [][]wire.Oppdragsdata
	for start := 0; start < len(oppdrag); start += size {
		end := start + size
		if end > len(oppdrag) {
			end = len(oppdrag)
		}
		result = append(result, oppdrag[start:end])
	}
	return result
}
