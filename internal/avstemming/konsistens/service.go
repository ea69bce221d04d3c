package konsistens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	"etterlatte-utbetaling/internal/avstemming/wire"
	"etterlatte-utbetaling/internal/observability/metrics"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const kind = "konsistens"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service runs consistency reconciliations.
type Service struct {
	utbetalinger utbetaling.Repository
	avstemminger avstemming.Repository
	sender       avstemming.Sender
	builder      Builder
	clock        Clock
	logger       *zap.Logger
}

// NewService constructs the service.
func NewService(utbetalinger utbetaling.Repository, avstemminger avstemming.Repository, sender avstemming.Sender, builder Builder, clock Clock, logger *zap.Logger) (*Service, error) {
	if utbetalinger == nil {
		return nil, errors.New("konsistensavstemming: nil utbetaling repository")
	}
	if avstemminger == nil {
		return nil, errors.New("konsistensavstemming: nil avstemming repository")
	}
	if sender == nil {
		return nil, errors.New("konsistensavstemming: nil sender")
	}
	if builder.OppdragPerMelding <= 0 {
		return nil, errors.New("konsistensavstemming: oppdrag per melding must be positive")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		utbetalinger: utbetalinger,
		avstemminger: avstemminger,
		sender:       sender,
		builder:      builder,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Idag returns today's date in the ledger's time zone.
func (s *Service) Idag() time.Time {
	return utbetaling.Dato(s.clock.Now().In(s.builder.Location))
}

// Run reports the effective lines of every case as of dato.
func (s *Service) Run(ctx context.Context, sakType utbetaling.SakType, dato time.Time) (*avstemming.Konsistensavstemming, error) {
	start := time.Now()
	dato = utbetaling.Dato(dato)
	opprettetFoer := KjentFoer(dato, s.builder.Location)
	log := s.logger.With(zap.String("sak_type", string(sakType)), zap.String("dato", dato.Format(utbetaling.DatoFormat)))

	utbetalinger, err := s.utbetalinger.HentGodkjenteTil(ctx, sakType, opprettetFoer)
	if err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}
	saker := Grupper(utbetalinger, dato)

	id := uuid.NewString()
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	rapport := s.builder.Bygg(id, sakType, now, saker)
	meldinger, err := wire.MarshalAll(rapport.Meldinger)
	if err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}
	if err := s.sender.SendAvstemming(ctx, sakType, meldinger); err != nil {
		log.Warn("konsistensavstemming avbrutt", zap.Error(err))
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}

	record := &avstemming.Konsistensavstemming{
		ID:              id,
		SakType:         sakType,
		Dato:            dato,
		OpprettetFoer:   opprettetFoer,
		AntallOppdrag:   rapport.TotalAntall,
		Avstemmingsdata: wire.Join(meldinger),
		Snapshot:        rapport.Snapshot,
		Opprettet:       now,
	}
	if err := s.avstemminger.LagreKonsistens(ctx, record); err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), rapport.TotalAntall)
		return nil, err
	}
	log.Info("konsistensavstemming fullfoert",
		zap.String("avstemming_id", id),
		zap.Int("antall_oppdrag", rapport.TotalAntall),
		zap.Int("meldinger", len(meldinger)),
	)
	metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultSuccess, time.Since(start), rapport.TotalAntall)
	return record, nil
}

// RunAll reports every category as of today.
func (s *Service) RunAll(ctx context.Context, sakTyper []utbetaling.SakType) error {
	dato := s.Idag()
	var errs []error
	for _, sakType := range sakTyper {
		if _, err := s.Run(ctx, sakType, dato); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
