package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

// Avstemming configures the reconciliation jobs.
type Avstemming struct {
	SakTyper    []string          `yaml:"sak_typer"`
	Grensesnitt GrensesnittConfig `yaml:"grensesnitt"`
	Konsistens  KonsistensConfig  `yaml:"konsistens"`
}

// GrensesnittConfig configures interface reconciliation.
type GrensesnittConfig struct {
	Cron               string `yaml:"cron"`
	DetaljerPerMelding int    `yaml:"detaljer_per_melding"`
}

// KonsistensConfig configures consistency reconciliation.
type KonsistensConfig struct {
	Cron              string `yaml:"cron"`
	OppdragPerMelding int    `yaml:"oppdrag_per_melding"`
}

// LoadAvstemming reads the YAML job file at path, if any, and fills in env and defaults.
func LoadAvstemming(path string) (Avstemming, error) {
	var cfg Avstemming
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.Grensesnitt.Cron == "" {
		cfg.Grensesnitt.Cron = getenvDefault("GRENSESNITT_CRON", "0 * * * *")
	}
	if cfg.Konsistens.Cron == "" {
		cfg.Konsistens.Cron = getenvDefault("KONSISTENS_CRON", "0 5 * * 1")
	}
	if cfg.Grensesnitt.DetaljerPerMelding <= 0 {
		cfg.Grensesnitt.DetaljerPerMelding = getenvIntDefault("GRENSESNITT_DETALJER_PER_MELDING", 70)
	}
	if cfg.Konsistens.OppdragPerMelding <= 0 {
		cfg.Konsistens.OppdragPerMelding = getenvIntDefault("KONSISTENS_OPPDRAG_PER_MELDING", 70)
	}
	if len(cfg.SakTyper) == 0 {
		cfg.SakTyper = splitCSV(getenvDefault("AVSTEMMING_SAKTYPER", ""))
	}
	if len(cfg.SakTyper) == 0 {
		for _, t := range utbetaling.SakTyper() {
			cfg.SakTyper = append(cfg.SakTyper, string(t))
		}
	}
	for _, t := range cfg.SakTyper {
		if !utbetaling.SakType(t).Gyldig() {
			return cfg, fmt.Errorf("config: ukjent saktype %q", t)
		}
	}
	return cfg, nil
}

// Typer returns the configured benefit categories.
func (a Avstemming) Typer() []utbetaling.SakType {
	result := make([]utbetaling.SakType, 0, len(a.SakTyper))
	for _, t := range a.SakTyper {
		result = append(result, utbetaling.SakType(t))
	}
	return result
}
