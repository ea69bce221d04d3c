package utbetaling

import "errors"

var (
	// ErrUgyldigVedtak is returned when a decision fails validation.
	ErrUgyldigVedtak = errors.New("utbetaling: ugyldig vedtak")
	// ErrUtbetalingFinnes is returned when an instruction already exists for the decision.
	ErrUtbetalingFinnes = errors.New("utbetaling: finnes allerede for vedtak")
	// ErrAlleredeKvittert is returned when a receipt arrives for an instruction with a terminal status.
	ErrAlleredeKvittert = errors.New("utbetaling: allerede kvittert")
	// ErrIkkeFunnet is returned when an instruction is not found.
	ErrIkkeFunnet = errors.New("utbetaling: ikke funnet")
	// ErrNilUtbetaling is returned when saving a nil instruction.
	ErrNilUtbetaling = errors.New("utbetaling: nil utbetaling")
	// ErrVenterPaaKvittering is returned when an earlier instruction of the case has no receipt yet.
	// The decision can be retried once the receipt has arrived.
	ErrVenterPaaKvittering = errors.New("utbetaling: tidligere utbetaling venter paa kvittering")
	// ErrUgyldigStatus is returned for a status that cannot be applied.
	ErrUgyldigStatus = errors.New("utbetaling: ugyldig status")
)
