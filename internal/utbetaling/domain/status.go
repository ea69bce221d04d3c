package utbetaling

import "time"

// Status is the lifecycle state of an instruction.
type Status string

const (
	StatusSendt           Status = "SENDT"
	StatusGodkjent        Status = "GODKJENT"
	StatusGodkjentMedFeil Status = "GODKJENT_MED_FEIL"
	StatusAvvist          Status = "AVVIST"
	StatusFeilet          Status = "FEILET"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusGodkjent, StatusGodkjentMedFeil, StatusAvvist, StatusFeilet:
		return true
	default:
		return false
	}
}

// Godkjent reports whether the ledger accepted the instruction.
func (s Status) Godkjent() bool {
	return s == StatusGodkjent || s == StatusGodkjentMedFeil
}

// StatusFraAlvorlighetsgrad maps a receipt severity code to a status.
func StatusFraAlvorlighetsgrad(grad string) Status {
	switch grad {
	case "00":
		return StatusGodkjent
	case "04":
		return StatusGodkjentMedFeil
	case "08":
		return StatusAvvist
	default:
		return StatusFeilet
	}
}

// UtbetalingHendelse is one entry in an instruction's status history.
type UtbetalingHendelse struct {
	ID           string
	UtbetalingID string
	Status       Status
	Tidspunkt    time.Time
}

// Kvittering is the ledger's asynchronous answer to an instruction.
type Kvittering struct {
	Melding          []byte
	Alvorlighetsgrad string
	Kode             string
	Beskrivelse      string
	Mottatt          time.Time
}
