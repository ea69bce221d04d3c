// Package memory holds in-process outbox and DLQ stores for tests and local runs.
package memory

import (
	"context"
	"sync"

	"etterlatte-utbetaling/internal/eventing"
)

const (
	statusPending = "pending"
	statusSent    = "sent"
	statusFailed  = "failed"
)

type outboxEntry struct {
	record eventing.OutboxRecord
	status string
}

// OutboxStore keeps outbox records in insertion order.
type OutboxStore struct {
	mu      sync.Mutex
	entries []*outboxEntry
	byEvent map[string]*outboxEntry
}

// NewOutboxStore constructs an empty store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{byEvent: make(map[string]*outboxEntry)}
}

// Insert stores env unless its event id is already present.
func (s *OutboxStore) Insert(_ context.Context, env eventing.Envelope) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEvent[env.EventID]; ok {
		return "", nil
	}
	entry := &outboxEntry{
		record: eventing.OutboxRecord{ID: eventing.NewEventID(), Envelope: env},
		status: statusPending,
	}
	s.entries = append(s.entries, entry)
	s.byEvent[env.EventID] = entry
	return entry.record.ID, nil
}

// ListPending returns up to limit pending records.
func (s *OutboxStore) ListPending(_ context.Context, limit int) ([]eventing.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []eventing.OutboxRecord
	for _, e := range s.entries {
		if e.status != statusPending {
			continue
		}
		result = append(result, e.record)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// MarkSent marks the record sent.
func (s *OutboxStore) MarkSent(_ context.Context, id string) error {
	s.update(id, func(e *outboxEntry) { e.status = statusSent })
	return nil
}

// MarkRetry increments attempts.
func (s *OutboxStore) MarkRetry(_ context.Context, id string) error {
	s.update(id, func(e *outboxEntry) { e.record.Attempts++ })
	return nil
}

// MarkFailed marks the record failed.
func (s *OutboxStore) MarkFailed(_ context.Context, id string) error {
	s.update(id, func(e *outboxEntry) {
		e.record.Attempts++
		e.status = statusFailed
	})
	return nil
}

// Envelopes returns every stored envelope.
func (s *OutboxStore) Envelopes() []eventing.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]eventing.Envelope, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.record.Envelope)
	}
	return result
}

// Status returns the status of the record holding eventID.
func (s *OutboxStore) Status(eventID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byEvent[eventID]; ok {
		return e.status
	}
	return ""
}

func (s *OutboxStore) update(id string, fn func(*outboxEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.record.ID == id {
			fn(e)
			return
		}
	}
}

// DLQStore records failed envelopes.
type DLQStore struct {
	mu       sync.Mutex
	failures map[string]int
}

// NewDLQStore constructs an empty store.
func NewDLQStore() *DLQStore {
	return &DLQStore{failures: make(map[string]int)}
}

// RecordFailure counts a failure for env.
func (s *DLQStore) RecordFailure(_ context.Context, env eventing.Envelope, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[env.EventID]++
	return nil
}

// Attempts returns the number of failures recorded for eventID.
func (s *DLQStore) Attempts(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[eventID]
}
