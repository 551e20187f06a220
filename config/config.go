/*
config.go - Service configuration

PURPOSE:
  Loads configuration from a YAML file with environment variable
  overrides. Every field has a default so the server starts with no
  config at all.

PRECEDENCE:
  env var > yaml file > default

SEE ALSO:
  - cmd/server/main.go: Loads this at startup
*/
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all service settings.
type Config struct {
	HTTP struct {
		Port int `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	} `yaml:"http"`

	DB struct {
		Path string `yaml:"path" env:"DB_PATH" env-default:"booking.db"`
	} `yaml:"db"`

	Gateway struct {
		Secret   string `yaml:"secret" env:"GATEWAY_SECRET" env-default:"dev-secret"`
		Currency string `yaml:"currency" env:"GATEWAY_CURRENCY" env-default:"INR"`
	} `yaml:"gateway"`

	Sweep struct {
		IntervalMinutes int  `yaml:"interval_minutes" env:"SWEEP_INTERVAL_MINUTES" env-default:"60"`
		Enabled         bool `yaml:"enabled" env:"SWEEP_ENABLED" env-default:"true"`
	} `yaml:"sweep"`

	Fares struct {
		ChildPct  float64 `yaml:"child_pct" env:"FARE_CHILD_PCT" env-default:"75"`
		InfantPct float64 `yaml:"infant_pct" env:"FARE_INFANT_PCT" env-default:"10"`
		TaxPct    float64 `yaml:"tax_pct" env:"FARE_TAX_PCT" env-default:"0"`
	} `yaml:"fares"`

	Drafts struct {
		TTLMinutes int `yaml:"ttl_minutes" env:"DRAFT_TTL_MINUTES" env-default:"30"`
	} `yaml:"drafts"`
}

// Load reads config from path, falling back to environment-only when the
// file does not exist.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err == nil {
			return &cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}
