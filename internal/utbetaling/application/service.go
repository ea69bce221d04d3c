package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/observability/metrics"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// OppdragSender publishes a stored instruction payload to the ledger channel
// and returns once the broker has confirmed it.
type OppdragSender interface {
	SendOppdrag(ctx context.Context, u *utbetaling.Utbetaling) error
}

// StatusPublisher emits status changed events.
type StatusPublisher interface {
	PublishStatusEndret(ctx context.Context, event UtbetalingStatusEndret) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service issues payment instructions and applies ledger receipts.
type Service struct {
	repo        utbetaling.Repository
	encoder     *oppdrag.Encoder
	sender      OppdragSender
	status      StatusPublisher
	clock       Clock
	logger      *zap.Logger
	sikkerlogg  *zap.Logger
	resendAfter time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSikkerlogg sets the logger for raw payloads.
func WithSikkerlogg(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.sikkerlogg = logger
		}
	}
}

// WithResendAfter sets how old an unpublished instruction must be before the sweep resends it.
func WithResendAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resendAfter = d
		}
	}
}

// NewService constructs the service.
func NewService(repo utbetaling.Repository, encoder *oppdrag.Encoder, sender OppdragSender, status StatusPublisher, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("utbetaling service: nil repository")
	}
	if encoder == nil {
		return nil, errors.New("utbetaling service: nil encoder")
	}
	if sender == nil {
		return nil, errors.New("utbetaling service: nil sender")
	}
	if status == nil {
		return nil, errors.New("utbetaling service: nil status publisher")
	}
	s := &Service{
		repo:        repo,
		encoder:     encoder,
		sender:      sender,
		status:      status,
		clock:       SystemClock{},
		logger:      zap.NewNop(),
		sikkerlogg:  zap.NewNop(),
		resendAfter: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// Issue turns a decision into a persisted and dispatched instruction.
// A decision that already has an instruction returns it with created=false and sends nothing.
// A publish failure returns the persisted instruction together with an error wrapping
// messaging.ErrPublish; ResendPending picks it up later.
func (s *Service) Issue(ctx context.Context, v utbetaling.Vedtak) (*utbetaling.Utbetaling, bool, error) {
	start := time.Now()
	log := s.logger.With(zap.Int64("vedtak_id", v.VedtakID), zap.Int64("sak_id", v.SakID))

	if err := v.Validate(); err != nil {
		metrics.ObserveIssue(metrics.IssueResultInvalid, time.Since(start))
		return nil, false, err
	}
	existing, err := s.repo.HentForVedtak(ctx, v.VedtakID)
	if err != nil {
		metrics.ObserveIssue(metrics.ResultError, time.Since(start))
		return nil, false, err
	}
	if existing != nil {
		log.Info("utbetaling finnes allerede for vedtak", zap.String("utbetaling_id", existing.ID))
		metrics.ObserveIssue(metrics.IssueResultExisting, time.Since(start))
		return existing, false, nil
	}

	u, err := s.bygg(ctx, v)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, utbetaling.ErrUgyldigVedtak) {
			result = metrics.IssueResultInvalid
		}
		metrics.ObserveIssue(result, time.Since(start))
		return nil, false, err
	}
	payload, err := s.encoder.Encode(u)
	if err != nil {
		metrics.ObserveIssue(metrics.IssueResultInvalid, time.Since(start))
		return nil, false, err
	}
	u.Oppdrag = payload

	if err := s.repo.Opprett(ctx, u); err != nil {
		if errors.Is(err, utbetaling.ErrUtbetalingFinnes) {
			existing, hentErr := s.repo.HentForVedtak(ctx, v.VedtakID)
			if hentErr != nil {
				return nil, false, hentErr
			}
			if existing != nil {
				log.Info("utbetaling opprettet samtidig av en annen instans", zap.String("utbetaling_id", existing.ID))
				metrics.ObserveIssue(metrics.IssueResultExisting, time.Since(start))
				return existing, false, nil
			}
		}
		metrics.ObserveIssue(metrics.ResultError, time.Since(start))
		return nil, false, err
	}
	metrics.ObserveIssue(metrics.IssueResultCreated, time.Since(start))
	log.Info("utbetaling opprettet", zap.String("utbetaling_id", u.ID), zap.Int("linjer", len(u.Linjer)))

	if err := s.Dispatch(ctx, u); err != nil {
		log.Warn("utbetaling lagret, men ikke sendt", zap.String("utbetaling_id", u.ID), zap.Error(err))
		return u, true, err
	}
	return u, true, nil
}

func (s *Service) bygg(ctx context.Context, v utbetaling.Vedtak) (*utbetaling.Utbetaling, error) {
	perioder, err := v.SortertePerioder()
	if err != nil {
		return nil, err
	}
	opphoerFra, err := v.OpphoerFra()
	if err != nil {
		return nil, err
	}
	forrige, err := s.forrigeLinje(ctx, v.SakID)
	if err != nil {
		return nil, err
	}
	var forrigeID *int64
	if forrige != nil {
		id := forrige.ID
		forrigeID = &id
	}

	antall := len(perioder)
	if opphoerFra != nil {
		if forrigeID == nil {
			return nil, fmt.Errorf("%w: opphoer uten tidligere utbetaling for sak %d", utbetaling.ErrUgyldigVedtak, v.SakID)
		}
		antall = 1
	}
	ids, err := s.repo.ReserverLinjeIDer(ctx, antall)
	if err != nil {
		return nil, err
	}
	if len(ids) != antall {
		return nil, fmt.Errorf("utbetaling service: fikk %d linje-id, forventet %d", len(ids), antall)
	}

	now := s.now()
	id := uuid.NewString()
	u := &utbetaling.Utbetaling{
		ID:                 id,
		SakID:              v.SakID,
		VedtakID:           v.VedtakID,
		BehandlingID:       v.BehandlingID,
		SakType:            v.SakType,
		StoenadsmottakerID: v.Stoenadsmottaker,
		Saksbehandler:      v.Saksbehandler,
		Attestant:          v.Attestant,
		Avstemmingsnoekkel: now,
		Opprettet:          now,
		Endret:             now,
		Hendelser: []utbetaling.UtbetalingHendelse{{
			ID:           uuid.NewString(),
			UtbetalingID: id,
			Status:       utbetaling.StatusSendt,
			Tidspunkt:    now,
		}},
	}
	kode := v.SakType.Klassifikasjonskode()

	if opphoerFra != nil {
		u.Linjer = []utbetaling.Utbetalingslinje{{
			ID:                  ids[0],
			Type:                utbetaling.LinjeTypeOpphoer,
			UtbetalingID:        id,
			SakID:               v.SakID,
			Periode:             utbetaling.Periode{Fra: *opphoerFra},
			Klassifikasjonskode: kode,
			Opprettet:           now,
			ErstatterID:         forrigeID,
		}}
		return u, nil
	}

	for i, p := range perioder {
		beloep := p.Beloep
		u.Linjer = append(u.Linjer, utbetaling.Utbetalingslinje{
			ID:                  ids[i],
			Type:                utbetaling.LinjeTypeUtbetaling,
			UtbetalingID:        id,
			SakID:               v.SakID,
			Periode:             p.Periode,
			Beloep:              &beloep,
			Klassifikasjonskode: kode,
			Opprettet:           now,
			ErstatterID:         forrigeID,
		})
		linjeID := ids[i]
		forrigeID = &linjeID
	}
	return u, nil
}

// forrigeLinje returns the line a new instruction for the case continues from: the latest line of
// an instruction the ledger accepted. Lines of rejected or failed instructions are skipped.
// While an earlier instruction waits for its receipt the chain is unknown and ErrVenterPaaKvittering
// is returned.
func (s *Service) forrigeLinje(ctx context.Context, sakID int64) (*utbetaling.Utbetalingslinje, error) {
	tidligere, err := s.repo.HentForSak(ctx, sakID)
	if err != nil {
		return nil, err
	}
	var godkjente []utbetaling.Utbetalingslinje
	for i := range tidligere {
		status := tidligere[i].Status()
		if status == utbetaling.StatusSendt {
			return nil, fmt.Errorf("%w: utbetaling %s i sak %d", utbetaling.ErrVenterPaaKvittering, tidligere[i].ID, sakID)
		}
		if status.Godkjent() {
			godkjente = append(godkjente, tidligere[i].Linjer...)
		}
	}
	return utbetaling.SisteLinje(godkjente), nil
}

// Dispatch publishes the stored payload and records the confirmed publish.
func (s *Service) Dispatch(ctx context.Context, u *utbetaling.Utbetaling) error {
	if u == nil {
		return utbetaling.ErrNilUtbetaling
	}
	start := time.Now()
	if err := s.sender.SendOppdrag(ctx, u); err != nil {
		metrics.ObserveOppdragPublish(metrics.ResultError, time.Since(start))
		return err
	}
	metrics.ObserveOppdragPublish(metrics.ResultSuccess, time.Since(start))
	publisert := s.now()
	if err := s.repo.MarkerPublisert(ctx, u.ID, publisert); err != nil {
		return err
	}
	u.Publisert = publisert
	return nil
}

// ResendPending republishes instructions that were persisted but never confirmed by the broker.
// It stops at the first publish failure and returns the number sent.
func (s *Service) ResendPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.HentUpubliserte(ctx, s.now().Add(-s.resendAfter), limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range pending {
		u := &pending[i]
		if err := s.Dispatch(ctx, u); err != nil {
			s.logger.Warn("kunne ikke sende utbetaling paa nytt",
				zap.String("utbetaling_id", u.ID),
				zap.Int64("vedtak_id", u.VedtakID),
				zap.Error(err),
			)
			return sent, err
		}
		s.logger.Info("utbetaling sendt paa nytt", zap.String("utbetaling_id", u.ID), zap.Int64("vedtak_id", u.VedtakID))
		sent++
	}
	return sent, nil
}
