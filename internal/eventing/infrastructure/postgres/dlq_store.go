package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"etterlatte-utbetaling/internal/eventing"
)

var errNilDLQDB = errors.New("status dlq: nil db")

// recordStatusFailure keeps one row per status event. A repeated failure refreshes the
// latest error and bumps the count, the first failure time is kept.
const recordStatusFailure = `
INSERT INTO status_hendelse_dlq (
	event_id,
	event_type,
	sak_id,
	correlation_id,
	hendelse,
	feilmelding,
	foerste_feil,
	siste_feil,
	antall_feil
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $7, 1
)
ON CONFLICT (event_id)
DO UPDATE SET
	hendelse = EXCLUDED.hendelse,
	feilmelding = EXCLUDED.feilmelding,
	siste_feil = EXCLUDED.siste_feil,
	antall_feil = status_hendelse_dlq.antall_feil + 1`

// DLQStore records status events the dispatcher gave up on, keyed by event id.
type DLQStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDLQStore constructs a DLQ store.
func NewDLQStore(db *sql.DB) *DLQStore {
	return &DLQStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordFailure stores env with the error that stopped its delivery.
func (s *DLQStore) RecordFailure(ctx context.Context, env eventing.Envelope, cause error) error {
	if s == nil || s.db == nil {
		return errNilDLQDB
	}
	if env.EventID == "" {
		return errors.New("status dlq: empty event id")
	}
	hendelse, err := json.Marshal(env)
	if err != nil {
		return err
	}
	feilmelding := "ukjent feil"
	if cause != nil {
		feilmelding = cause.Error()
	}
	_, err = s.db.ExecContext(ctx, recordStatusFailure,
		env.EventID,
		env.EventType,
		nullable(env.SakID),
		nullable(env.CorrelationID),
		string(hendelse),
		feilmelding,
		s.now(),
	)
	return err
}
