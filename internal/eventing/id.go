package eventing

import (
	"strings"

	"github.com/google/uuid"
)

var eventNamespace = uuid.MustParse("6f1c3a52-8a0e-4c5e-9b0b-3d6f0f7e2a41")

// NewEventID generates a random event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// DeterministicEventID derives a stable identifier from parts, so a replayed
// state change produces the same event id.
func DeterministicEventID(parts ...string) string {
	return uuid.NewSHA1(eventNamespace, []byte(strings.Join(parts, "|"))).String()
}
