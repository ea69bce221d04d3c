package oppdrag

import "encoding/xml"

// Namespace is the ledger schema namespace.
const Namespace = "http://www.trygdeetaten.no/skjema/oppdrag"

// Oppdrag is the root element of both instructions and receipts.
type Oppdrag struct {
	XMLName    xml.Name   `xml:"http://www.trygdeetaten.no/skjema/oppdrag oppdrag"`
	Mmel       *Mmel      `xml:"mmel,omitempty"`
	Oppdrag110 Oppdrag110 `xml:"oppdrag-110"`
}

// Mmel carries the ledger's verdict on a receipt.
type Mmel struct {
	SystemID         string `xml:"systemId,omitempty"`
	KodeMelding      string `xml:"kodeMelding,omitempty"`
	Alvorlighetsgrad string `xml:"alvorlighetsgrad"`
	BeskrMelding     string `xml:"beskrMelding,omitempty"`
}

// Oppdrag110 is the instruction header.
type Oppdrag110 struct {
	KodeAksjon            string             `xml:"kodeAksjon"`
	KodeEndring           string             `xml:"kodeEndring"`
	KodeFagomraade        string             `xml:"kodeFagomraade"`
	FagsystemID           string             `xml:"fagsystemId"`
	UtbetFrekvens         string             `xml:"utbetFrekvens"`
	OppdragGjelderID      string             `xml:"oppdragGjelderId"`
	DatoOppdragGjelderFom string             `xml:"datoOppdragGjelderFom"`
	SaksbehID             string             `xml:"saksbehId"`
	Avstemming115         Avstemming115      `xml:"avstemming-115"`
	OppdragsEnhet120      []OppdragsEnhet120 `xml:"oppdrags-enhet-120"`
	OppdragsLinje150      []OppdragsLinje150 `xml:"oppdrags-linje-150"`
}

// Avstemming115 carries the reconciliation key.
type Avstemming115 struct {
	KodeKomponent    string `xml:"kodeKomponent"`
	NokkelAvstemming string `xml:"nokkelAvstemming"`
	TidspktMelding   string `xml:"tidspktMelding"`
}

// OppdragsEnhet120 names the responsible unit.
type OppdragsEnhet120 struct {
	TypeEnhet    string `xml:"typeEnhet"`
	Enhet        string `xml:"enhet"`
	DatoEnhetFom string `xml:"datoEnhetFom"`
}

// OppdragsLinje150 is one payment or termination line.
type OppdragsLinje150 struct {
	KodeEndringLinje string         `xml:"kodeEndringLinje"`
	KodeStatusLinje  string         `xml:"kodeStatusLinje,omitempty"`
	DatoStatusFom    string         `xml:"datoStatusFom,omitempty"`
	VedtakID         string         `xml:"vedtakId"`
	DelytelseID      string         `xml:"delytelseId"`
	KodeKlassifik    string         `xml:"kodeKlassifik"`
	DatoVedtakFom    string         `xml:"datoVedtakFom"`
	DatoVedtakTom    string         `xml:"datoVedtakTom,omitempty"`
	Sats             string         `xml:"sats,omitempty"`
	FradragTillegg   string         `xml:"fradragTillegg"`
	TypeSats         string         `xml:"typeSats"`
	BrukKjoreplan    string         `xml:"brukKjoreplan"`
	SaksbehID        string         `xml:"saksbehId"`
	UtbetalesTilID   string         `xml:"utbetalesTilId"`
	Henvisning       string         `xml:"henvisning"`
	RefFagsystemID   string         `xml:"refFagsystemId,omitempty"`
	RefDelytelseID   string         `xml:"refDelytelseId,omitempty"`
	Attestant180     []Attestant180 `xml:"attestant-180"`
}

// Attestant180 names the attesting caseworker.
type Attestant180 struct {
	AttestantID string `xml:"attestantId"`
}
