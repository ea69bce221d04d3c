package oppdrag

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const (
	defaultKodeKomponent = "ETTERLAT"
	defaultEnhet         = "4819"

	kodeAksjonOppdatering = "1"
	kodeEndringNy         = "NY"
	kodeEndringEndr       = "ENDR"
	kodeStatusOpphoer     = "OPPH"
	frekvensMaaned        = "MND"
	typeEnhetBosted       = "BOS"
	enhetFom              = "1900-01-01"
	fradragTilleggTillegg = "T"
	brukKjoreplanNei      = "N"

	// TidspunktFormat is the ledger's timestamp layout for reconciliation keys.
	TidspunktFormat = "2006-01-02-15.04.05.000000"
)

// Encoder builds ledger instructions from stored payment instructions.
type Encoder struct {
	codec         Codec
	kodeKomponent string
	enhet         string
	location      *time.Location
}

// Option configures the encoder.
type Option func(*Encoder)

// WithCodec overrides the wire codec.
func WithCodec(codec Codec) Option {
	return func(e *Encoder) {
		if codec != nil {
			e.codec = codec
		}
	}
}

// WithKodeKomponent overrides the reconciliation component code.
func WithKodeKomponent(kode string) Option {
	return func(e *Encoder) {
		if kode != "" {
			e.kodeKomponent = kode
		}
	}
}

// WithEnhet overrides the responsible unit.
func WithEnhet(enhet string) Option {
	return func(e *Encoder) {
		if enhet != "" {
			e.enhet = enhet
		}
	}
}

// NewEncoder constructs an encoder with the XML codec.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		codec:         XMLCodec{},
		kodeKomponent: defaultKodeKomponent,
		enhet:         defaultEnhet,
		location:      Tidssone(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Codec returns the wire codec.
func (e *Encoder) Codec() Codec {
	return e.codec
}

// Encode builds and serializes the instruction. The output depends only on u.
func (e *Encoder) Encode(u *utbetaling.Utbetaling) ([]byte, error) {
	o, err := e.Bygg(u)
	if err != nil {
		return nil, err
	}
	return e.codec.Encode(o)
}

// Bygg maps a payment instruction to the wire structure.
func (e *Encoder) Bygg(u *utbetaling.Utbetaling) (*Oppdrag, error) {
	if u == nil {
		return nil, errors.New("oppdrag: nil utbetaling")
	}
	if len(u.Linjer) == 0 {
		return nil, ErrIngenLinjer
	}
	kodeEndring := kodeEndringNy
	if !u.ForsteForSak() {
		kodeEndring = kodeEndringEndr
	}
	nokkel := FormaterTidspunkt(u.Avstemmingsnoekkel, e.location)
	fagsystemID := strconv.FormatInt(u.SakID, 10)
	vedtakID := strconv.FormatInt(u.VedtakID, 10)

	linjer := make([]OppdragsLinje150, 0, len(u.Linjer))
	for _, l := range u.Linjer {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("oppdrag: linje %d: %w", l.ID, err)
		}
		linje := OppdragsLinje150{
			KodeEndringLinje: kodeEndringNy,
			VedtakID:         vedtakID,
			DelytelseID:      strconv.FormatInt(l.ID, 10),
			KodeKlassifik:    l.Klassifikasjonskode,
			DatoVedtakFom:    l.Periode.Fra.Format(utbetaling.DatoFormat),
			FradragTillegg:   fradragTilleggTillegg,
			TypeSats:         frekvensMaaned,
			BrukKjoreplan:    brukKjoreplanNei,
			SaksbehID:        u.Saksbehandler,
			UtbetalesTilID:   u.StoenadsmottakerID,
			Henvisning:       u.BehandlingID,
			Attestant180:     []Attestant180{{AttestantID: u.Attestant}},
		}
		if l.Periode.Til != nil {
			linje.DatoVedtakTom = l.Periode.Til.Format(utbetaling.DatoFormat)
		}
		if l.ErstatterID != nil {
			linje.RefDelytelseID = strconv.FormatInt(*l.ErstatterID, 10)
			linje.RefFagsystemID = fagsystemID
		}
		switch l.Type {
		case utbetaling.LinjeTypeOpphoer:
			linje.KodeStatusLinje = kodeStatusOpphoer
			linje.DatoStatusFom = linje.DatoVedtakFom
		default:
			linje.Sats = l.Beloep.StringFixed(2)
		}
		linjer = append(linjer, linje)
	}

	return &Oppdrag{
		Oppdrag110: Oppdrag110{
			KodeAksjon:            kodeAksjonOppdatering,
			KodeEndring:           kodeEndring,
			KodeFagomraade:        u.SakType.Fagomraade(),
			FagsystemID:           fagsystemID,
			UtbetFrekvens:         frekvensMaaned,
			OppdragGjelderID:      u.StoenadsmottakerID,
			DatoOppdragGjelderFom: enhetFom,
			SaksbehID:             u.Saksbehandler,
			Avstemming115: Avstemming115{
				KodeKomponent:    e.kodeKomponent,
				NokkelAvstemming: nokkel,
				TidspktMelding:   nokkel,
			},
			OppdragsEnhet120: []OppdragsEnhet120{{
				TypeEnhet:    typeEnhetBosted,
				Enhet:        e.enhet,
				DatoEnhetFom: enhetFom,
			}},
			OppdragsLinje150: linjer,
		},
	}, nil
}

// Tidssone returns the ledger's local time zone.
func Tidssone() *time.Location {
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormaterTidspunkt renders t in the ledger's local timestamp layout.
func FormaterTidspunkt(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TidspunktFormat)
}
