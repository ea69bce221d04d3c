package grensesnitt

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

const kind = "grensesnitt"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service runs interface reconciliations.
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
		return nil, errors.New("grensesnittavstemming: nil utbetaling repository")
	}
	if avstemminger == nil {
		return nil, errors.New("grensesnittavstemming: nil avstemming repository")
	}
	if sender == nil {
		return nil, errors.New("grensesnittavstemming: nil sender")
	}
	if builder.DetaljerPerMelding <= 0 {
		return nil, errors.New("grensesnittavstemming: detaljer per melding must be positive")
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

// Run reconciles one category from the end of its previous run up to the current hour.
// It returns nil without side effects when the window is empty because the hour has not turned.
func (s *Service) Run(ctx context.Context, sakType utbetaling.SakType) (*avstemming.Grensesnittavstemming, error) {
	start := time.Now()
	forrige, err := s.avstemminger.SisteGrensesnitt(ctx, sakType)
	if err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}
	fra := avstemming.Epoch
	if forrige != nil {
		fra = forrige.PeriodeTil
	}
	til := s.clock.Now().UTC().Truncate(time.Hour)
	log := s.logger.With(zap.String("sak_type", string(sakType)), zap.Time("fra", fra), zap.Time("til", til))
	if !fra.Before(til) {
		log.Debug("grensesnittavstemming allerede kjoert for perioden")
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultSkipped, time.Since(start), 0)
		return nil, nil
	}

	utbetalinger, err := s.utbetalinger.HentForAvstemming(ctx, sakType, fra, til)
	if err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}

	id := uuid.NewString()
	rapport := s.builder.Bygg(id, sakType, fra, til, utbetalinger)
	meldinger, err := wire.MarshalAll(rapport.Meldinger)
	if err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}
	if err := s.sender.SendAvstemming(ctx, sakType, meldinger); err != nil {
		log.Warn("grensesnittavstemming avbrutt, sendes paa nytt ved neste kjoering", zap.Error(err))
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), 0)
		return nil, err
	}

	record := &avstemming.Grensesnittavstemming{
		ID:              id,
		SakType:         sakType,
		PeriodeFra:      fra,
		PeriodeTil:      til,
		AntallOppdrag:   len(utbetalinger),
		Avstemmingsdata: wire.Join(meldinger),
		Opprettet:       s.clock.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.avstemminger.LagreGrensesnitt(ctx, record); err != nil {
		metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultError, time.Since(start), len(utbetalinger))
		return nil, err
	}
	log.Info("grensesnittavstemming fullfoert",
		zap.String("avstemming_id", id),
		zap.Int("antall_oppdrag", len(utbetalinger)),
		zap.Int("detaljer", len(rapport.Detaljer)),
		zap.Int("meldinger", len(meldinger)),
	)
	metrics.ObserveAvstemming(kind, string(sakType), metrics.ResultSuccess, time.Since(start), len(utbetalinger))
	return record, nil
}

// RunAll reconciles every category and joins the errors.
func (s *Service) RunAll(ctx context.Context, sakTyper []utbetaling.SakType) error {
	var errs []error
	for _, sakType := range sakTyper {
		if _, err := s.Run(ctx, sakType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
