package utbetaling

import "time"

// DatoFormat is the calendar date layout used on every wire format.
const DatoFormat = "2006-01-02"

// NyDato returns the calendar date at midnight UTC.
func NyDato(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dato truncates t to its calendar date.
func Dato(t time.Time) time.Time {
	y, m, d := t.Date()
	return NyDato(y, m, d)
}

// ParseDato parses a YYYY-MM-DD date.
func ParseDato(value string) (time.Time, error) {
	return time.ParseInLocation(DatoFormat, value, time.UTC)
}

// Periode is a closed calendar date range. A nil Til is open-ended.
type Periode struct {
	Fra time.Time
	Til *time.Time
}

// Apen reports whether the period has no end.
func (p Periode) Apen() bool {
	return p.Til == nil
}

// Inneholder reports whether dato falls inside the period.
func (p Periode) Inneholder(dato time.Time) bool {
	dato = Dato(dato)
	if dato.Before(p.Fra) {
		return false
	}
	return p.Til == nil || !dato.After(*p.Til)
}
