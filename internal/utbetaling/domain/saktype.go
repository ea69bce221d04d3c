package utbetaling

// SakType is the benefit category of a case.
type SakType string

const (
	SakTypeBarnepensjon       SakType = "BARNEPENSJON"
	SakTypeOmstillingsstoenad SakType = "OMSTILLINGSSTOENAD"
)

// SakTyper lists every supported benefit category.
func SakTyper() []SakType {
	return []SakType{SakTypeBarnepensjon, SakTypeOmstillingsstoenad}
}

// Gyldig reports whether t is a supported benefit category.
func (t SakType) Gyldig() bool {
	switch t {
	case SakTypeBarnepensjon, SakTypeOmstillingsstoenad:
		return true
	default:
		return false
	}
}

// Fagomraade returns the ledger subject area code.
func (t SakType) Fagomraade() string {
	switch t {
	case SakTypeOmstillingsstoenad:
		return "OMSTILL"
	default:
		return "BARNEPE"
	}
}

// Klassifikasjonskode returns the ledger classification code for payment lines.
func (t SakType) Klassifikasjonskode() string {
	switch t {
	case SakTypeOmstillingsstoenad:
		return "OMSTILLINGOR"
	default:
		return "BARNEPENSJON-OPTP"
	}
}
