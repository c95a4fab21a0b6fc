package config

import (
	"os"
	"strconv"

	"gorla/domain/audit"
	"gorla/internal/errors"
)

// Config holds the audit-run configuration the orchestration layer and CLI
// consume. Contest definitions arrive separately as JSON contest specs.
type Config struct {
	// Seed for every deterministic PRNG stream in the run.
	Seed int64
	// Reps is the number of Monte Carlo replications for sample-size
	// simulation; 0 selects deterministic estimation.
	Reps int
	// Quantile of simulated sample sizes to report.
	Quantile float64
	// ErrorRate is the assumed rate of overstatement errors for
	// comparison-audit sample-size construction; negative means unset.
	ErrorRate float64
	// ReportPath is where the Excel audit report is written.
	ReportPath string
}

// Load builds a Config from environment variables with audit defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Seed:       audit.DefaultSeed,
		Reps:       0,
		Quantile:   0.5,
		ErrorRate:  -1,
		ReportPath: getEnv("AUDIT_REPORT_PATH", "audit_report.xlsx"),
	}
	var err error
	if cfg.Seed, err = getEnvInt64("AUDIT_SEED", cfg.Seed); err != nil {
		return nil, err
	}
	if cfg.Reps, err = getEnvInt("AUDIT_REPS", cfg.Reps); err != nil {
		return nil, err
	}
	if cfg.Quantile, err = getEnvFloat("AUDIT_QUANTILE", cfg.Quantile); err != nil {
		return nil, err
	}
	if cfg.ErrorRate, err = getEnvFloat("AUDIT_ERROR_RATE", cfg.ErrorRate); err != nil {
		return nil, err
	}
	if cfg.Quantile <= 0 || cfg.Quantile > 1 {
		return nil, errors.ConfigInvalid("AUDIT_QUANTILE must be in (0, 1]")
	}
	return cfg, nil
}

// SampleSizeOpts converts the run configuration into per-assertion
// estimation options.
func (c *Config) SampleSizeOpts() audit.SampleSizeOpts {
	opts := audit.DefaultSampleSizeOpts()
	opts.Reps = c.Reps
	opts.Quantile = c.Quantile
	opts.Seed = c.Seed
	opts.Rate = c.ErrorRate
	return opts
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer")
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer")
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number")
	}
	return f, nil
}
