package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

func TestLoadAvstemmingDefaults(t *testing.T) {
	cfg, err := LoadAvstemming("")
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", cfg.Grensesnitt.Cron)
	assert.Equal(t, "0 5 * * 1", cfg.Konsistens.Cron)
	assert.Equal(t, 70, cfg.Grensesnitt.DetaljerPerMelding)
	assert.Equal(t, 70, cfg.Konsistens.OppdragPerMelding)
	assert.Equal(t, utbetaling.SakTyper(), cfg.Typer())
}

func TestLoadAvstemmingFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avstemming.yaml")
	content := `
sak_typer: [OMSTILLINGSSTOENAD]
grensesnitt:
  cron: "30 * * * *"
  detaljer_per_melding: 10
konsistens:
  oppdrag_per_melding: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadAvstemming(path)
	require.NoError(t, err)
	assert.Equal(t, []utbetaling.SakType{utbetaling.SakTypeOmstillingsstoenad}, cfg.Typer())
	assert.Equal(t, "30 * * * *", cfg.Grensesnitt.Cron)
	assert.Equal(t, 10, cfg.Grensesnitt.DetaljerPerMelding)
	assert.Equal(t, 5, cfg.Konsistens.OppdragPerMelding)
	assert.Equal(t, "0 5 * * 1", cfg.Konsistens.Cron)
}

func TestLoadAvstemmingRejectsUnknownSakType(t *testing.T) {
	t.Setenv("AVSTEMMING_SAKTYPER", "BARNEPENSJON, UFOERETRYGD")
	_, err := LoadAvstemming("")
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/utbetaling")
	t.Setenv("OPPDRAG_QUEUE", "oppdrag.test")
	t.Setenv("LEADER_TTL", "45s")
	t.Setenv("AMQP_PREFETCH", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "oppdrag.test", cfg.OppdragQueue)
	assert.Equal(t, 45*time.Second, cfg.LeaderTTL)
	assert.Equal(t, 1, cfg.Prefetch)
	assert.Equal(t, "utbetaling.kvittering", cfg.KvitteringQueue)
}
