package utbetaling

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Vedtak is an attested decision ready to be paid out.
type Vedtak struct {
	VedtakID         int64           `json:"vedtakId" validate:"required,gt=0"`
	SakID            int64           `json:"sakId" validate:"required,gt=0"`
	SakType          SakType         `json:"sakType" validate:"required,oneof=BARNEPENSJON OMSTILLINGSSTOENAD"`
	BehandlingID     string          `json:"behandlingId" validate:"required,uuid"`
	Stoenadsmottaker string          `json:"stoenadsmottaker" validate:"required,numeric,len=11"`
	Saksbehandler    string          `json:"saksbehandler" validate:"required,max=8"`
	Attestant        string          `json:"attestant" validate:"required,max=8"`
	Perioder         []VedtakPeriode `json:"perioder" validate:"dive"`
	Opphoer          *VedtakOpphoer  `json:"opphoer,omitempty"`
}

// VedtakPeriode is one paid period of a decision.
type VedtakPeriode struct {
	Fom    string          `json:"fom" validate:"required,datetime=2006-01-02"`
	Tom    string          `json:"tom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Beloep decimal.Decimal `json:"beloep"`
}

// VedtakOpphoer marks that payments for the case stop from Fom.
type VedtakOpphoer struct {
	Fom string `json:"fom" validate:"required,datetime=2006-01-02"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the relations between periods.
func (v Vedtak) Validate() error {
	if err := validatorInstance().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrUgyldigVedtak, err)
	}
	if v.Opphoer != nil && len(v.Perioder) > 0 {
		return fmt.Errorf("%w: opphoer kan ikke kombineres med perioder", ErrUgyldigVedtak)
	}
	if _, err := v.OpphoerFra(); err != nil {
		return err
	}
	perioder, err := v.SortertePerioder()
	if err != nil {
		return err
	}
	for i := 1; i < len(perioder); i++ {
		forrige := perioder[i-1]
		if forrige.Til == nil || !forrige.Til.Before(perioder[i].Fra) {
			return fmt.Errorf("%w: overlappende perioder", ErrUgyldigVedtak)
		}
	}
	return nil
}

// PeriodeMedBeloep is a parsed decision period.
type PeriodeMedBeloep struct {
	Periode
	Beloep decimal.Decimal
}

// SortertePerioder parses the periods and orders them by start date.
func (v Vedtak) SortertePerioder() ([]PeriodeMedBeloep, error) {
	result := make([]PeriodeMedBeloep, 0, len(v.Perioder))
	for _, p := range v.Perioder {
		fra, err := ParseDato(p.Fom)
		if err != nil {
			return nil, fmt.Errorf("%w: fom %q", ErrUgyldigVedtak, p.Fom)
		}
		periode := PeriodeMedBeloep{Periode: Periode{Fra: fra}, Beloep: p.Beloep}
		if p.Tom != "" {
			til, err := ParseDato(p.Tom)
			if err != nil {
				return nil, fmt.Errorf("%w: tom %q", ErrUgyldigVedtak, p.Tom)
			}
			if til.Before(fra) {
				return nil, fmt.Errorf("%w: tom foer fom", ErrUgyldigVedtak)
			}
			periode.Til = &til
		}
		result = append(result, periode)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Fra.Before(result[j].Fra)
	})
	return result, nil
}

// OpphoerFra returns the termination date, or nil when the decision keeps paying.
func (v Vedtak) OpphoerFra() (*time.Time, error) {
	if v.Opphoer == nil {
		return nil, nil
	}
	fra, err := ParseDato(v.Opphoer.Fom)
	if err != nil {
		return nil, fmt.Errorf("%w: opphoer fom %q", ErrUgyldigVedtak, v.Opphoer.Fom)
	}
	return &fra, nil
}
