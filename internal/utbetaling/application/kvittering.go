package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/eventing"
	"etterlatte-utbetaling/internal/observability/metrics"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

const (
	kvitteringLagret   = "lagret"
	kvitteringDuplikat = "duplikat"
	kvitteringUgyldig  = "ugyldig"
	kvitteringUkjent   = "ukjent"
)

// HandleKvittering applies a ledger receipt to the instruction it answers.
//
// Errors wrap oppdrag.ErrUgyldigKvittering when the payload cannot be parsed,
// utbetaling.ErrIkkeFunnet when no instruction matches, and utbetaling.ErrAlleredeKvittert
// when the instruction already had a terminal status. In the duplicate case the stored
// status event is written again so a crash between the two steps cannot lose it.
func (s *Service) HandleKvittering(ctx context.Context, melding []byte) (*utbetaling.Utbetaling, error) {
	kv, err := oppdrag.DecodeKvittering(s.encoder.Codec(), melding)
	if err != nil {
		s.sikkerlogg.Warn("kunne ikke lese kvittering", zap.ByteString("melding", melding), zap.Error(err))
		metrics.IncKvittering(kvitteringUgyldig)
		return nil, err
	}
	log := s.logger.With(zap.Int64("vedtak_id", kv.VedtakID), zap.String("fagsystem_id", kv.FagsystemID))

	u, err := s.repo.HentForVedtak(ctx, kv.VedtakID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.sikkerlogg.Warn("kvittering for ukjent utbetaling",
			zap.Int64("vedtak_id", kv.VedtakID),
			zap.ByteString("melding", melding),
		)
		metrics.IncKvittering(kvitteringUkjent)
		return nil, fmt.Errorf("%w: vedtak %d", utbetaling.ErrIkkeFunnet, kv.VedtakID)
	}
	log = log.With(zap.String("utbetaling_id", u.ID), zap.Int64("sak_id", u.SakID))

	status := utbetaling.StatusFraAlvorlighetsgrad(kv.Alvorlighetsgrad)
	kvittering := utbetaling.Kvittering{
		Melding:          append([]byte(nil), melding...),
		Alvorlighetsgrad: kv.Alvorlighetsgrad,
		Kode:             kv.Kode,
		Beskrivelse:      kv.Beskrivelse,
		Mottatt:          s.now(),
	}

	err = s.repo.LagreKvittering(ctx, u.ID, kvittering, status)
	switch {
	case errors.Is(err, utbetaling.ErrAlleredeKvittert):
		log.Info("kvittering for utbetaling som allerede er kvittert, forkastes",
			zap.String("status", string(u.Status())),
			zap.String("alvorlighetsgrad", kv.Alvorlighetsgrad),
		)
		metrics.IncKvittering(kvitteringDuplikat)
		stored, hentErr := s.repo.Hent(ctx, u.ID)
		if hentErr != nil {
			return nil, hentErr
		}
		if stored == nil {
			stored = u
		}
		if pubErr := s.publishStatus(ctx, stored); pubErr != nil {
			return stored, pubErr
		}
		return stored, fmt.Errorf("%w: utbetaling %s", utbetaling.ErrAlleredeKvittert, u.ID)
	case err != nil:
		return nil, err
	}

	stored, err := s.repo.Hent(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: utbetaling %s", utbetaling.ErrIkkeFunnet, u.ID)
	}
	metrics.IncKvittering(kvitteringLagret)
	if status.Godkjent() {
		log.Info("utbetaling kvittert", zap.String("status", string(status)))
	} else {
		log.Warn("utbetaling kvittert med feil",
			zap.String("status", string(status)),
			zap.String("kode", kv.Kode),
			zap.String("beskrivelse", kv.Beskrivelse),
		)
	}
	if err := s.publishStatus(ctx, stored); err != nil {
		return stored, err
	}
	return stored, nil
}

func (s *Service) publishStatus(ctx context.Context, u *utbetaling.Utbetaling) error {
	status := u.Status()
	if !status.Terminal() {
		return nil
	}
	occurredAt := u.Endret
	for _, h := range u.Hendelser {
		if h.Status == status {
			occurredAt = h.Tidspunkt
		}
	}
	event := UtbetalingStatusEndret{
		EventID:      eventing.DeterministicEventID(u.ID, string(status)),
		UtbetalingID: u.ID,
		VedtakID:     u.VedtakID,
		SakID:        u.SakID,
		BehandlingID: u.BehandlingID,
		Status:       status,
		OccurredAt:   occurredAt,
	}
	if err := s.status.PublishStatusEndret(ctx, event); err != nil {
		return fmt.Errorf("utbetaling service: status event for %s: %w", u.ID, err)
	}
	return nil
}
