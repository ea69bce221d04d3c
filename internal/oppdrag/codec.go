package oppdrag

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

var (
	// ErrIngenLinjer is returned when an instruction has neither payment nor termination lines.
	ErrIngenLinjer = errors.New("oppdrag: ingen linjer")
	// ErrUgyldigKvittering is returned when a receipt cannot be parsed or correlated.
	ErrUgyldigKvittering = errors.New("oppdrag: ugyldig kvittering")
)

// Codec converts the wire structure to and from bytes.
type Codec interface {
	Encode(o *Oppdrag) ([]byte, error)
	Decode(data []byte) (*Oppdrag, error)
}

// XMLCodec is the ledger's XML representation.
type XMLCodec struct{}

// Encode marshals o with an XML declaration.
func (XMLCodec) Encode(o *Oppdrag) ([]byte, error) {
	if o == nil {
		return nil, errors.New("oppdrag: nil oppdrag")
	}
	body, err := xml.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("oppdrag: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body))
	buf.WriteString(xml.Header)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode unmarshals an instruction or receipt.
func (XMLCodec) Decode(data []byte) (*Oppdrag, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("oppdrag: tom melding")
	}
	var o Oppdrag
	if err := xml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("oppdrag: unmarshal: %w", err)
	}
	return &o, nil
}
