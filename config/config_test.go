package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commission.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Engine.SPIFRate.Equal(decimal.RequireFromString("0.02")))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
http:
  port: 9090
store:
  driver: memory
logging:
  level: debug
  format: json
engine:
  spif_rate: 0.03
  min_tier_gap: "500"
  fiscal_year_start_month: 4
  workers: 2
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2, cfg.Engine.Workers)

	settings := cfg.Engine.Settings()
	assert.True(t, settings.SPIFRate.Equal(decimal.RequireFromString("0.03")))
	assert.Equal(t, time.April, settings.FiscalYearStartMonth)
	assert.True(t, cfg.Engine.Validation().MinTierGap.Equal(decimal.NewFromInt(500)))

	// Sections not in the file keep their defaults
	assert.NotEmpty(t, cfg.HTTP.AllowedOrigins)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "http:\n  port: 9090\n")
	t.Setenv("COMMISSION_HTTP_PORT", "7000")
	t.Setenv("COMMISSION_DB_PATH", "/tmp/other.db")
	t.Setenv("COMMISSION_LOG_LEVEL", "warn")
	t.Setenv("COMMISSION_WORKERS", "3")
	t.Setenv("COMMISSION_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := config.Load(writeFile(t, "http: [not, a, map]"))
	assert.ErrorContains(t, err, "parse config file")

	_, err = config.Load(writeFile(t, "store:\n  driver: postgres\n"))
	assert.ErrorContains(t, err, "unknown store.driver")

	_, err = config.Load(writeFile(t, "engine:\n  spif_rate: 2\n"))
	assert.ErrorIs(t, err, compensation.ErrRateOutOfRange)

	_, err = config.Load(writeFile(t, "engine:\n  fiscal_year_start_month: 13\n"))
	assert.Error(t, err)
}
