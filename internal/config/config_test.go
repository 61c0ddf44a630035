package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Sources.Referrals.Origin)
	assert.True(t, cfg.Pipeline.WindowFallback)
	assert.Equal(t, 500, cfg.Pipeline.PreferredMaxEntries)
	assert.InDelta(t, 0.5, cfg.Pipeline.PreferredMaxFraction, 0.001)
	assert.Equal(t, 3, cfg.Scorer.MinReferrals)
	assert.InDelta(t, 50, cfg.Scorer.MaxRadiusMiles, 0.001)
	assert.Equal(t, 730, cfg.Scorer.TimeWindowDays)
	assert.InDelta(t, 0.4, cfg.Scorer.Weights.Distance, 0.001)
	assert.InDelta(t, 0.3, cfg.Scorer.Weights.Outbound, 0.001)
	assert.InDelta(t, 0.2, cfg.Scorer.Weights.Inbound, 0.001)
	assert.InDelta(t, 0.1, cfg.Scorer.Weights.Preferred, 0.001)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Cache.RefreshHour)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "referral.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
sources:
  referrals:
    origin: http
    url: https://example.com/referrals.xlsx
scorer:
  min_referrals: 5
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Sources.Referrals.Origin)
	assert.Equal(t, "https://example.com/referrals.xlsx", cfg.Sources.Referrals.URL)
	assert.Equal(t, 5, cfg.Scorer.MinReferrals)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.InDelta(t, 50, cfg.Scorer.MaxRadiusMiles, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REFERRAL_STORE_DRIVER", "postgres")
	t.Setenv("REFERRAL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("REFERRAL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Sources.Referrals.Origin = "local"
	cfg.Sources.Preferred.Origin = "local"
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "referral.db"
	cfg.Pipeline.PreferredMaxFraction = 0.5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRecommend(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("recommend"))
}

func TestValidatePostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("recommend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/referral"
	assert.NoError(t, cfg.Validate("recommend"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("recommend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateNegativeWeights(t *testing.T) {
	cfg := validDefaults()
	cfg.Scorer.Weights.Outbound = -0.3

	err := cfg.Validate("recommend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer.weights values must be >= 0")
}

func TestValidatePreferredFractionBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.PreferredMaxFraction = 1.5

	err := cfg.Validate("recommend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preferred_max_fraction")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
