// Package memory is an in-process reconciliation record store.
package memory

import (
	"context"
	"sync"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// Repository keeps records in insertion order.
type Repository struct {
	mu          sync.Mutex
	grensesnitt []avstemming.Grensesnittavstemming
	konsistens  []avstemming.Konsistensavstemming
}

// NewRepository constructs an empty store.
func NewRepository() *Repository {
	return &Repository{}
}

// SisteGrensesnitt returns the record with the latest window end.
func (r *Repository) SisteGrensesnitt(_ context.Context, sakType utbetaling.SakType) (*avstemming.Grensesnittavstemming, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var siste *avstemming.Grensesnittavstemming
	for i := range r.grensesnitt {
		a := r.grensesnitt[i]
		if a.SakType != sakType {
			continue
		}
		if siste == nil || a.PeriodeTil.After(siste.PeriodeTil) {
			siste = &a
		}
	}
	return siste, nil
}

// LagreGrensesnitt appends a record unless one with the same window end exists.
func (r *Repository) LagreGrensesnitt(_ context.Context, a *avstemming.Grensesnittavstemming) error {
	if a == nil {
		return avstemming.ErrNilAvstemming
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.grensesnitt {
		if existing.SakType == a.SakType && existing.PeriodeTil.Equal(a.PeriodeTil) {
			return avstemming.ErrAvstemmingFinnes
		}
	}
	r.grensesnitt = append(r.grensesnitt, *a)
	return nil
}

// ListGrensesnitt returns records newest first.
func (r *Repository) ListGrensesnitt(_ context.Context, sakType utbetaling.SakType, limit int) ([]avstemming.Grensesnittavstemming, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []avstemming.Grensesnittavstemming
	for i := len(r.grensesnitt) - 1; i >= 0; i-- {
		if r.grensesnitt[i].SakType != sakType {
			continue
		}
		result = append(result, r.grensesnitt[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// SisteKonsistens returns the last stored record.
func (r *Repository) SisteKonsistens(_ context.Context, sakType utbetaling.SakType) (*avstemming.Konsistensavstemming, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.konsistens) - 1; i >= 0; i-- {
		if r.konsistens[i].SakType == sakType {
			a := r.konsistens[i]
			a.Snapshot = append([]avstemming.OppdragSnapshot(nil), a.Snapshot...)
			return &a, nil
		}
	}
	return nil, nil
}

// LagreKonsistens appends a record.
func (r *Repository) LagreKonsistens(_ context.Context, a *avstemming.Konsistensavstemming) error {
	if a == nil {
		return avstemming.ErrNilAvstemming
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *a
	stored.Snapshot = append([]avstemming.OppdragSnapshot(nil), a.Snapshot...)
	r.konsistens = append(r.konsistens, stored)
	return nil
}

// AntallKonsistens returns the number of stored consistency records.
func (r *Repository) AntallKonsistens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.konsistens)
}
