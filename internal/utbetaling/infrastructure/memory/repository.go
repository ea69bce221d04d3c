package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// Repository is an in-memory payment store.
type Repository struct {
	mu          sync.Mutex
	byID        map[string]*utbetaling.Utbetaling
	byVedtak    map[int64]string
	nextLinjeID int64
}

// NewRepository constructs an empty store.
func NewRepository() *Repository {
	return &Repository{
		byID:     make(map[string]*utbetaling.Utbetaling),
		byVedtak: make(map[int64]string),
	}
}

// Hent returns the instruction with id.
func (r *Repository) Hent(_ context.Context, id string) (*utbetaling.Utbetaling, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

// HentForVedtak returns the instruction for a decision.
func (r *Repository) HentForVedtak(_ context.Context, vedtakID int64) (*utbetaling.Utbetaling, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byVedtak[vedtakID]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

// HentForSak returns every instruction of a case, oldest first.
func (r *Repository) HentForSak(_ context.Context, sakID int64) ([]utbetaling.Utbetaling, error) {
	return r.query(func(u *utbetaling.Utbetaling) bool { return u.SakID == sakID },
		func(a, b *utbetaling.Utbetaling) bool { return a.Opprettet.Before(b.Opprettet) }, 0), nil
}

// ReserverLinjeIDer hands out ids from a counter.
func (r *Repository) ReserverLinjeIDer(_ context.Context, n int) ([]int64, error) {
	if n < 0 {
		return nil, errors.New("utbetaling repo: negative count")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		r.nextLinjeID++
		ids[i] = r.nextLinjeID
	}
	return ids, nil
}

// Opprett stores a new instruction.
func (r *Repository) Opprett(_ context.Context, u *utbetaling.Utbetaling) error {
	if u == nil {
		return utbetaling.ErrNilUtbetaling
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byVedtak[u.VedtakID]; ok {
		return utbetaling.ErrUtbetalingFinnes
	}
	if _, ok := r.byID[u.ID]; ok {
		return utbetaling.ErrUtbetalingFinnes
	}
	stored := clone(u)
	if len(stored.Hendelser) == 0 {
		stored.Hendelser = []utbetaling.UtbetalingHendelse{{
			UtbetalingID: u.ID,
			Status:       utbetaling.StatusSendt,
			Tidspunkt:    u.Opprettet,
		}}
	}
	r.byID[u.ID] = stored
	r.byVedtak[u.VedtakID] = u.ID
	return nil
}

// MarkerPublisert sets the publish timestamp once.
func (r *Repository) MarkerPublisert(_ context.Context, id string, tidspunkt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return utbetaling.ErrIkkeFunnet
	}
	if u.Publisert.IsZero() {
		u.Publisert = tidspunkt
	}
	return nil
}

// HentUpubliserte returns unpublished SENDT instructions, oldest first.
func (r *Repository) HentUpubliserte(_ context.Context, opprettetFoer time.Time, limit int) ([]utbetaling.Utbetaling, error) {
	return r.query(func(u *utbetaling.Utbetaling) bool {
		return u.Status() == utbetaling.StatusSendt && u.Publisert.IsZero() && u.Opprettet.Before(opprettetFoer)
	}, func(a, b *utbetaling.Utbetaling) bool { return a.Opprettet.Before(b.Opprettet) }, limit), nil
}

// LagreKvittering appends the terminal status and stores the receipt.
func (r *Repository) LagreKvittering(_ context.Context, id string, kvittering utbetaling.Kvittering, status utbetaling.Status) error {
	if !status.Terminal() {
		return utbetaling.ErrUgyldigStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return utbetaling.ErrIkkeFunnet
	}
	if u.Status().Terminal() {
		return utbetaling.ErrAlleredeKvittert
	}
	k := kvittering
	k.Melding = append([]byte(nil), kvittering.Melding...)
	u.Kvittering = &k
	u.Hendelser = append(u.Hendelser, utbetaling.UtbetalingHendelse{
		UtbetalingID: id,
		Status:       status,
		Tidspunkt:    kvittering.Mottatt,
	})
	u.Endret = kvittering.Mottatt
	return nil
}

// HentForAvstemming returns instructions with a reconciliation key in [fra, til).
func (r *Repository) HentForAvstemming(_ context.Context, sakType utbetaling.SakType, fra, til time.Time) ([]utbetaling.Utbetaling, error) {
	return r.query(func(u *utbetaling.Utbetaling) bool {
		return u.SakType == sakType && !u.Avstemmingsnoekkel.Before(fra) && u.Avstemmingsnoekkel.Before(til)
	}, func(a, b *utbetaling.Utbetaling) bool { return a.Avstemmingsnoekkel.Before(b.Avstemmingsnoekkel) }, 0), nil
}

// HentGodkjenteTil returns accepted instructions created before the cutoff.
func (r *Repository) HentGodkjenteTil(_ context.Context, sakType utbetaling.SakType, opprettetFoer time.Time) ([]utbetaling.Utbetaling, error) {
	return r.query(func(u *utbetaling.Utbetaling) bool {
		return u.SakType == sakType && u.Status().Godkjent() && u.Opprettet.Before(opprettetFoer)
	}, func(a, b *utbetaling.Utbetaling) bool {
		if a.SakID != b.SakID {
			return a.SakID < b.SakID
		}
		return a.Opprettet.Before(b.Opprettet)
	}, 0), nil
}

func (r *Repository) query(match func(*utbetaling.Utbetaling) bool, less func(a, b *utbetaling.Utbetaling) bool, limit int) []utbetaling.Utbetaling {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hits []*utbetaling.Utbetaling
	for _, u := range r.byID {
		if match(u) {
			hits = append(hits, u)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	sort.SliceStable(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	result := make([]utbetaling.Utbetaling, 0, len(hits))
	for _, u := range hits {
		result = append(result, *clone(u))
	}
	return result
}

func clone(u *utbetaling.Utbetaling) *utbetaling.Utbetaling {
	if u == nil {
		return nil
	}
	c := *u
	c.Oppdrag = append([]byte(nil), u.Oppdrag...)
	c.Linjer = append([]utbetaling.Utbetalingslinje(nil), u.Linjer...)
	c.Hendelser = append([]utbetaling.UtbetalingHendelse(nil), u.Hendelser...)
	if u.Kvittering != nil {
		k := *u.Kvittering
		k.Melding = append([]byte(nil), u.Kvittering.Melding...)
		c.Kvittering = &k
	}
	return &c
}
