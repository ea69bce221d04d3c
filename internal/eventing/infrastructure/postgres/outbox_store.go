package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"etterlatte-utbetaling/internal/eventing"
)

const (
	defaultOutboxTable = "event_outbox"
	defaultClaimLease  = 2 * time.Minute
	defaultClaimLimit  = 50
)

var errNilOutboxDB = errors.New("outbox store: nil db")

// OutboxStore keeps status events in Postgres until the dispatcher has delivered them.
// Every replica may dispatch; ListPending claims rows so two replicas never hold the same record.
type OutboxStore struct {
	db    *sql.DB
	table string
	lease time.Duration
	now   func() time.Time
}

// OutboxOption configures the outbox store.
type OutboxOption func(*OutboxStore)

// WithOutboxTable overrides the table name.
func WithOutboxTable(table string) OutboxOption {
	return func(store *OutboxStore) {
		if table != "" {
			store.table = table
		}
	}
}

// WithClaimLease sets how long a claimed record is hidden from other dispatchers.
func WithClaimLease(lease time.Duration) OutboxOption {
	return func(store *OutboxStore) {
		if lease > 0 {
			store.lease = lease
		}
	}
}

// NewOutboxStore constructs an outbox store.
func NewOutboxStore(db *sql.DB, opts ...OutboxOption) *OutboxStore {
	store := &OutboxStore{
		db:    db,
		table: defaultOutboxTable,
		lease: defaultClaimLease,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Insert stores env as pending. An event id that is already stored is left untouched and
// an empty id is returned.
func (s *OutboxStore) Insert(ctx context.Context, env eventing.Envelope) (string, error) {
	if s == nil || s.db == nil {
		return "", errNilOutboxDB
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, event_id, event_type, sak_id, correlation_id, payload, status, attempts)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0)
ON CONFLICT (event_id) DO NOTHING
RETURNING id`, s.table)

	var id string
	err = s.db.QueryRowContext(ctx, query,
		eventing.NewEventID(),
		env.EventID,
		env.EventType,
		nullable(env.SakID),
		nullable(env.CorrelationID),
		string(payload),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", err
	}
	return id, nil
}

// ListPending claims up to limit pending records, oldest first, skipping rows another
// dispatcher holds a live claim on.
func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]eventing.OutboxRecord, error) {
	if s == nil || s.db == nil {
		return nil, errNilOutboxDB
	}
	if limit <= 0 {
		limit = defaultClaimLimit
	}
	now := s.now()
	query := fmt.Sprintf(`
WITH claimable AS (
	SELECT id
	FROM %[1]s
	WHERE status = 'pending' AND (claimed_until IS NULL OR claimed_until < $1)
	ORDER BY created_at ASC
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
UPDATE %[1]s o
SET claimed_until = $3
FROM claimable
WHERE o.id = claimable.id
RETURNING o.id, o.attempts, o.payload, o.created_at`, s.table)

	rows, err := s.db.QueryContext(ctx, query, now, limit, now.Add(s.lease))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type claimed struct {
		record    eventing.OutboxRecord
		createdAt time.Time
	}
	var list []claimed
	for rows.Next() {
		var c claimed
		var payload []byte
		if err := rows.Scan(&c.record.ID, &c.record.Attempts, &payload, &c.createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &c.record.Envelope); err != nil {
			return nil, fmt.Errorf("outbox store: record %s: %w", c.record.ID, err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// UPDATE ... RETURNING does not keep the subquery order.
	sort.Slice(list, func(i, j int) bool { return list[i].createdAt.Before(list[j].createdAt) })
	result := make([]eventing.OutboxRecord, 0, len(list))
	for _, c := range list {
		result = append(result, c.record)
	}
	return result, nil
}

// MarkSent records delivery.
func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errNilOutboxDB
	}
	return s.update(ctx, id, "status = 'sent', sent_at = $2, claimed_until = NULL", s.now())
}

// MarkRetry releases the claim and counts the failed attempt.
func (s *OutboxStore) MarkRetry(ctx context.Context, id string) error {
	return s.update(ctx, id, "attempts = attempts + 1, claimed_until = NULL")
}

// MarkFailed takes the record out of dispatch for good.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string) error {
	return s.update(ctx, id, "status = 'failed', attempts = attempts + 1, claimed_until = NULL")
}

func (s *OutboxStore) update(ctx context.Context, id, set string, args ...any) error {
	if s == nil || s.db == nil {
		return errNilOutboxDB
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, s.table, set)
	_, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	return err
}

// CountPending returns the number of records not yet delivered or failed.
func (s *OutboxStore) CountPending(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errNilOutboxDB
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = 'pending'`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
