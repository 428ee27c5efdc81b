/*
Package config loads server and CLI settings.

SOURCES (later wins):
  1. Built-in defaults
  2. YAML file (missing file is not an error)
  3. COMMISSION_* environment variables

  http:
    port: 8080
    allowed_origins: ["http://localhost:3000"]
  store:
    driver: sqlite        # sqlite | memory
    path: commission.db
  logging:
    level: info
    format: console
  engine:
    spif_rate: "0.02"
    min_tier_gap: "1000"
    fiscal_year_start_month: 1
    workers: 8

Engine values are defaults for new plans; a stored plan carries its own.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/logging"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the resolved application configuration.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Store   StoreConfig    `yaml:"store"`
	Logging logging.Config `yaml:"logging"`
	Engine  EngineConfig   `yaml:"engine"`
}

type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// EngineConfig holds calculation defaults.
type EngineConfig struct {
	SPIFRate             decimal.Decimal `yaml:"spif_rate"`
	MinTierGap           decimal.Decimal `yaml:"min_tier_gap"`
	FiscalYearStartMonth int             `yaml:"fiscal_year_start_month"`
	Workers              int             `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Store:   StoreConfig{Driver: DriverSQLite, Path: "commission.db"},
		Logging: logging.DefaultConfig(),
		Engine: EngineConfig{
			SPIFRate:             compensation.DefaultSPIFRate,
			MinTierGap:           compensation.DefaultMinTierGap,
			FiscalYearStartMonth: int(time.January),
			Workers:              compensation.DefaultWorkers,
		},
	}
}

// Load reads path (if it exists) over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.HTTP.Port = envInt("COMMISSION_HTTP_PORT", cfg.HTTP.Port)
	cfg.HTTP.AllowedOrigins = envCSV("COMMISSION_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.Store.Driver = envOrDefault("COMMISSION_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = envOrDefault("COMMISSION_DB_PATH", cfg.Store.Path)
	cfg.Logging.Level = envOrDefault("COMMISSION_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOrDefault("COMMISSION_LOG_FORMAT", cfg.Logging.Format)
	cfg.Engine.Workers = envInt("COMMISSION_WORKERS", cfg.Engine.Workers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Engine.FiscalYearStartMonth < 1 || c.Engine.FiscalYearStartMonth > 12 {
		return fmt.Errorf("engine.fiscal_year_start_month %d is not a month", c.Engine.FiscalYearStartMonth)
	}
	if c.Engine.SPIFRate.IsNegative() || c.Engine.SPIFRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: engine.spif_rate %s", compensation.ErrRateOutOfRange, c.Engine.SPIFRate)
	}
	if c.Engine.MinTierGap.IsNegative() {
		return fmt.Errorf("engine.min_tier_gap %s must not be negative", c.Engine.MinTierGap)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers %d must be at least 1", c.Engine.Workers)
	}
	return nil
}

// Settings returns the plan settings implied by the engine section.
func (e EngineConfig) Settings() compensation.Settings {
	return compensation.Settings{SPIFRate: e.SPIFRate, FiscalYearStartMonth: time.Month(e.FiscalYearStartMonth)}
}

// Validation returns the authoring guards implied by the engine section.
func (e EngineConfig) Validation() compensation.ValidationPolicy {
	return compensation.ValidationPolicy{MinTierGap: e.MinTierGap}
}

func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
