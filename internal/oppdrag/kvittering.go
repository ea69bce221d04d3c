package oppdrag

import (
	"fmt"
	"strconv"
	"strings"
)

// Kvittering is a parsed ledger receipt.
type Kvittering struct {
	Oppdrag          *Oppdrag
	VedtakID         int64
	FagsystemID      string
	Alvorlighetsgrad string
	Kode             string
	Beskrivelse      string
}

// DecodeKvittering parses a receipt and extracts the decision id it answers.
func DecodeKvittering(codec Codec, data []byte) (*Kvittering, error) {
	if codec == nil {
		codec = XMLCodec{}
	}
	o, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUgyldigKvittering, err)
	}
	if o.Mmel == nil {
		return nil, fmt.Errorf("%w: mangler mmel", ErrUgyldigKvittering)
	}
	vedtakID, err := vedtakIDFraLinjer(o.Oppdrag110.OppdragsLinje150)
	if err != nil {
		return nil, err
	}
	return &Kvittering{
		Oppdrag:          o,
		VedtakID:         vedtakID,
		FagsystemID:      o.Oppdrag110.FagsystemID,
		Alvorlighetsgrad: strings.TrimSpace(o.Mmel.Alvorlighetsgrad),
		Kode:             strings.TrimSpace(o.Mmel.KodeMelding),
		Beskrivelse:      strings.TrimSpace(o.Mmel.BeskrMelding),
	}, nil
}

func vedtakIDFraLinjer(linjer []OppdragsLinje150) (int64, error) {
	if len(linjer) == 0 {
		return 0, fmt.Errorf("%w: mangler linjer", ErrUgyldigKvittering)
	}
	var vedtakID int64
	for _, l := range linjer {
		id, err := strconv.ParseInt(strings.TrimSpace(l.VedtakID), 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: ugyldig vedtakId %q", ErrUgyldigKvittering, l.VedtakID)
		}
		if vedtakID != 0 && id != vedtakID {
			return 0, fmt.Errorf("%w: flere vedtakId i samme kvittering", ErrUgyldigKvittering)
		}
		vedtakID = id
	}
	return vedtakID, nil
}
