// Package config arma la configuración del cliente de reportes:
// defaults, luego archivo YAML (opcional), luego variables de entorno.
// Los flags de la CLI se aplican encima en cmd/reports.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pet-owner-reports/internal/reports"
	"pet-owner-reports/internal/retry"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("config: invalid")
)

const (
	MinLookupCeiling = 5
	MaxLookupCeiling = 50
)

type Config struct {
	BaseURL   string        `yaml:"base_url"`
	OutputDir string        `yaml:"output_dir"`
	Timeout   time.Duration `yaml:"timeout"`

	// RateLimit en requests/s hacia el servicio (0 => sin límite).
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	OwnerConcurrency int `yaml:"owner_concurrency"`
	LookupCeiling    int `yaml:"lookup_ceiling"`

	Retry RetryConfig `yaml:"retry"`

	// Only restringe la corrida a estos reportes (vacío => todos).
	Only []string `yaml:"only"`

	MetricsFile string `yaml:"metrics_file"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       float64       `yaml:"jitter"`
}

func Default() Config {
	p := retry.DefaultPolicy()
	return Config{
		BaseURL:          "http://localhost:8080",
		OutputDir:        "output",
		Timeout:          2 * time.Minute,
		OwnerConcurrency: reports.DefaultOwnerConcurrency,
		LookupCeiling:    reports.DefaultLookupCeiling,
		Retry: RetryConfig{
			MaxAttempts:  p.MaxAttempts,
			InitialDelay: p.InitialDelay,
			MaxDelay:     p.MaxDelay,
			Multiplier:   p.Multiplier,
		},
	}
}

// Load aplica defaults, el archivo en path (si path != "") y el entorno.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv pisa los campos con las variables REPORTS_* que estén definidas.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, parse func(string) error) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if err := parse(v); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err))
			}
		}
	}

	str("REPORTS_BASE_URL", &c.BaseURL)
	str("REPORTS_OUTPUT_DIR", &c.OutputDir)
	str("REPORTS_METRICS_FILE", &c.MetricsFile)

	num("REPORTS_TIMEOUT", func(v string) (err error) {
		c.Timeout, err = time.ParseDuration(v)
		return err
	})
	num("REPORTS_RATE_LIMIT", func(v string) (err error) {
		c.RateLimit, err = strconv.ParseFloat(v, 64)
		return err
	})
	num("REPORTS_OWNER_CONCURRENCY", func(v string) (err error) {
		c.OwnerConcurrency, err = strconv.Atoi(v)
		return err
	})
	num("REPORTS_LOOKUP_CEILING", func(v string) (err error) {
		c.LookupCeiling, err = strconv.Atoi(v)
		return err
	})
	num("REPORTS_RETRY_MAX_ATTEMPTS", func(v string) (err error) {
		c.Retry.MaxAttempts, err = strconv.Atoi(v)
		return err
	})

	if v := strings.TrimSpace(getenv("REPORTS_ONLY")); v != "" {
		c.Only = strings.Split(v, ",")
	}

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	case strings.TrimSpace(c.OutputDir) == "":
		return fmt.Errorf("%w: output_dir is required", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate_limit must be >= 0", ErrInvalidConfig)
	case c.LookupCeiling < MinLookupCeiling || c.LookupCeiling > MaxLookupCeiling:
		return fmt.Errorf("%w: lookup_ceiling must be in [%d,%d], got %d",
			ErrInvalidConfig, MinLookupCeiling, MaxLookupCeiling, c.LookupCeiling)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: retry: %v", ErrInvalidConfig, err)
	}
	if _, err := reports.Select(c.Only); err != nil {
		return fmt.Errorf("%w: only: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
	}
}

func (c Config) Limits() reports.Limits {
	return reports.Limits{
		OwnerConcurrency: c.OwnerConcurrency,
		LookupCeiling:    c.LookupCeiling,
	}
}
