// Package wire holds the ledger's reconciliation message schema.
package wire

import (
	"bytes"
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// AksjonType marks the position of a message in a report sequence.
type AksjonType string

const (
	AksjonStart AksjonType = "START"
	AksjonData  AksjonType = "DATA"
	AksjonAvsl  AksjonType = "AVSL"
)

// DetaljType classifies an itemized instruction in an interface reconciliation.
type DetaljType string

const (
	DetaljAvvist  DetaljType = "AVVI"
	DetaljVarsel  DetaljType = "VARS"
	DetaljMangler DetaljType = "MANG"
)

const (
	FortegnTillegg = "T"
	FortegnFradrag = "F"

	AvstemmingTypeGrensesnitt = "GRSN"
	AvstemmingTypeKonsistens  = "KONS"
	KildeTypeAvlevert         = "AVLEV"
	MottakendeKomponent       = "OS"

	// PeriodeFormat is the hour resolution layout of the report period.
	PeriodeFormat = "2006010215"
)

// Fortegn returns the sign indicator for amount.
func Fortegn(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return FortegnFradrag
	}
	return FortegnTillegg
}

// Aksjon identifies the report a message belongs to.
type Aksjon struct {
	AksjonType               AksjonType `xml:"aksjonType"`
	KildeType                string     `xml:"kildeType"`
	AvstemmingType           string     `xml:"avstemmingType"`
	AvleverendeKomponentKode string     `xml:"avleverendeKomponentKode"`
	MottakendeKomponentKode  string     `xml:"mottakendeKomponentKode"`
	UnderkomponentKode       string     `xml:"underkomponentKode"`
	NokkelFom                string     `xml:"nokkelFom,omitempty"`
	NokkelTom                string     `xml:"nokkelTom,omitempty"`
	TidspunktAvstemmingTom   string     `xml:"tidspunktAvstemmingTom,omitempty"`
	AvleverendeAvstemmingID  string     `xml:"avleverendeAvstemmingId"`
	BrukerID                 string     `xml:"brukerId"`
}

// Avstemmingsdata is one interface reconciliation message.
type Avstemmingsdata struct {
	XMLName  xml.Name  `xml:"avstemmingsdata"`
	Aksjon   Aksjon    `xml:"aksjon"`
	Total    *Total    `xml:"total,omitempty"`
	Periode  *Periode  `xml:"periode,omitempty"`
	Grunnlag *Grunnlag `xml:"grunnlag,omitempty"`
	Detalj   []Detalj  `xml:"detalj,omitempty"`
}

// Total is the aggregate over the whole window.
type Total struct {
	TotalAntall int    `xml:"totalAntall"`
	TotalBelop  string `xml:"totalBelop"`
	Fortegn     string `xml:"fortegn"`
}

// Periode is the span of reconciliation keys covered.
type Periode struct {
	DatoAvstemtFom string `xml:"datoAvstemtFom"`
	DatoAvstemtTom string `xml:"datoAvstemtTom"`
}

// Grunnlag splits the total per outcome bucket.
type Grunnlag struct {
	GodkjentAntall  int    `xml:"godkjentAntall"`
	GodkjentBelop   string `xml:"godkjentBelop"`
	GodkjentFortegn string `xml:"godkjentFortegn"`
	VarselAntall    int    `xml:"varselAntall"`
	VarselBelop     string `xml:"varselBelop"`
	VarselFortegn   string `xml:"varselFortegn"`
	AvvistAntall    int    `xml:"avvistAntall"`
	AvvistBelop     string `xml:"avvistBelop"`
	AvvistFortegn   string `xml:"avvistFortegn"`
	ManglerAntall   int    `xml:"manglerAntall"`
	ManglerBelop    string `xml:"manglerBelop"`
	ManglerFortegn  string `xml:"manglerFortegn"`
}

// Detalj itemizes one instruction that needs attention.
type Detalj struct {
	DetaljType                   DetaljType `xml:"detaljType"`
	Offnr                        string     `xml:"offnr"`
	AvleverendeTransaksjonNokkel string     `xml:"avleverendeTransaksjonNokkel"`
	MeldingKode                  string     `xml:"meldingKode,omitempty"`
	Alvorlighetsgrad             string     `xml:"alvorlighetsgrad,omitempty"`
	TekstMelding                 string     `xml:"tekstMelding,omitempty"`
	Tidspunkt                    string     `xml:"tidspunkt"`
}

// Konsistensavstemmingsdata is one consistency reconciliation message.
type Konsistensavstemmingsdata struct {
	XMLName       xml.Name       `xml:"konsistensavstemmingsdata"`
	Aksjonsdata   Aksjon         `xml:"aksjonsdata"`
	OppdragsListe []Oppdragsdata `xml:"oppdragsdata,omitempty"`
	Totaldata     *Totaldata     `xml:"totaldata,omitempty"`
}

// Oppdragsdata is the effective state of one case.
type Oppdragsdata struct {
	FagomradeKode       string          `xml:"fagomradeKode"`
	FagsystemID         string          `xml:"fagsystemId"`
	Utbetalingsfrekvens string          `xml:"utbetalingsfrekvens"`
	OppdragGjelderID    string          `xml:"oppdragGjelderId"`
	OppdragGjelderFom   string          `xml:"oppdragGjelderFom"`
	SaksbehandlerID     string          `xml:"saksbehandlerId"`
	OppdragsenhetListe  []Enhet         `xml:"oppdragsenhetListe"`
	OppdragslinjeListe  []Oppdragslinje `xml:"oppdragslinjeListe"`
}

// Enhet is the unit responsible for a case.
type Enhet struct {
	EnhetType string `xml:"enhetType"`
	Enhet     string `xml:"enhet"`
	EnhetFom  string `xml:"enhetFom"`
}

// Oppdragslinje is one effective line.
type Oppdragslinje struct {
	DelytelseID        string        `xml:"delytelseId"`
	KlassifikasjonKode string        `xml:"klassifikasjonKode"`
	VedtakPeriode      VedtakPeriode `xml:"vedtakPeriode"`
	Sats               string        `xml:"sats"`
	SatstypeKode       string        `xml:"satstypeKode"`
	FradragTillegg     string        `xml:"fradragTillegg"`
	BrukKjoreplan      string        `xml:"brukKjoreplan"`
	SaksbehandlerID    string        `xml:"saksbehandlerId"`
	UtbetalesTilID     string        `xml:"utbetalesTilId"`
	AttestantListe     []Attestant   `xml:"attestantListe"`
}

// VedtakPeriode is the coverage of a line.
type VedtakPeriode struct {
	Fom string `xml:"fom"`
	Tom string `xml:"tom,omitempty"`
}

// Attestant approved a line.
type Attestant struct {
	AttestantID string `xml:"attestantId"`
}

// Totaldata is the aggregate over all reported cases.
type Totaldata struct {
	TotalAntall int    `xml:"totalAntall"`
	TotalBelop  string `xml:"totalBelop"`
	Fortegn     string `xml:"fortegn"`
}

// Marshal renders v with an XML declaration.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalAll renders each message in order.
func MarshalAll[T any](messages []T) ([][]byte, error) {
	result := make([][]byte, 0, len(messages))
	for i := range messages {
		data, err := Marshal(&messages[i])
		if err != nil {
			return nil, err
		}
		result = append(result, data)
	}
	return result, nil
}

// Join concatenates rendered messages into the stored report body.
func Join(meldinger [][]byte) string {
	return string(bytes.Join(meldinger, []byte("\n")))
}
