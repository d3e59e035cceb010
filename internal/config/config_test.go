package config

import (
	"os"
	"path/filepath"
	"testing"

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

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "valuer.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
	assert.InDelta(t, 20.0, cfg.Batch.RatePerSecond, 0.001)
	assert.InDelta(t, 30, cfg.Comparables.LocationWeight, 0.001)
	assert.InDelta(t, 25, cfg.Comparables.SizeWeight, 0.001)
	assert.InDelta(t, 0.20, cfg.Comparables.AreaTolerancePct, 0.001)
	assert.InDelta(t, 200_000, cfg.Comparables.BedroomValueAED, 0.001)
	assert.Equal(t, 10, cfg.Valuation.MaxComparables)
	assert.InDelta(t, 1.96, cfg.Valuation.ZScore, 0.001)
	assert.Equal(t, 8, cfg.Valuation.HighMinComparables)
	assert.NotEmpty(t, cfg.Valuation.YieldTiers)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: memory
log:
  level: debug
  format: console
batch:
  max_concurrent: 10
valuation:
  max_comparables: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 15, cfg.Valuation.MaxComparables)
	// Defaults still apply for unset values
	assert.InDelta(t, 30, cfg.Comparables.LocationWeight, 0.001)
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

	t.Setenv("VALUER_STORE_DRIVER", "memory")
	t.Setenv("VALUER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsBrokenWeights(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
comparables:
  location_weight: 90
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "memory"
	cfg.Batch.MaxConcurrent = 5
	cfg.Batch.RatePerSecond = 20
	return cfg
}

func TestValidateMemoryDriver(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidatePostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/valuer"
	assert.NoError(t, cfg.Validate())
}

func TestValidateSQLiteRequiresPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")

	cfg.Store.SQLitePath = "valuer.db"
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch.max_concurrent must be between 1 and 50")

	cfg.Batch.MaxConcurrent = 51
	err = cfg.Validate()
	assert.Error(t, err)

	cfg.Batch.MaxConcurrent = 50
	assert.NoError(t, cfg.Validate())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
