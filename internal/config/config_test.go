package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "watch"
	cfg.LogLevel = "verbose"
	cfg.Crawler.Interval = duration{}
	cfg.Coins = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "watch"`)
	assert.Contains(t, err.Error(), `unknown log_level "verbose"`)
	assert.Contains(t, err.Error(), "interval must be > 0")
	assert.Contains(t, err.Error(), "at least one coin mapping is required")
}

func TestValidateRedisOnlyWhenSelected(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: addr")

	cfg.Store.Backend = "memory"
	assert.NoError(t, cfg.Validate())
}

func TestValidatePostgresOnlyForAlertingModes(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.DSN = ""

	cfg.Mode = "full"
	require.Error(t, cfg.Validate())

	cfg.Mode = "crawl"
	assert.NoError(t, cfg.Validate())

	// A DSN stands in for host/port/database.
	cfg.Mode = "alert"
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/arbwatch"
	assert.NoError(t, cfg.Validate())
}

func TestValidateModeCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "Full"
	cfg.Postgres.Host = ""
	cfg.Postgres.DSN = ""

	// A mixed-case mode must still trigger the postgres requirements, otherwise
	// the scheduler would later start without its stores.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")
}

func TestLoadNormalizesEnumeratedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "FULL"
log_level = "Debug"

[store]
backend = "Memory"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadNormalizesEnvMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "crawl"`), 0o644))

	t.Setenv("ARBWATCH_MODE", "Alert")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alert", cfg.Mode)
}

func TestValidateS3OnlyWhenArchiving(t *testing.T) {
	cfg := Defaults()
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.History.ArchiveEnabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "crawl"

[crawler]
interval = "5s"

[store]
backend = "memory"

[coins."DOGE/USD"]
poloniex = "USDT_DOGE"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "crawl", cfg.Mode)
	assert.Equal(t, 5*time.Second, cfg.Crawler.Interval.Duration)
	assert.Equal(t, "memory", cfg.Store.Backend)

	// File coin tables merge into the default map.
	assert.Equal(t, "USDT_DOGE", cfg.Coins["DOGE/USD"]["poloniex"])
	assert.Contains(t, cfg.Coins, "BTC/USD")

	// Untouched sections keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Crawler.FetchTimeout.Duration)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[crawler]
interval = "five seconds"
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "crawl"`), 0o644))

	t.Setenv("ARBWATCH_MODE", "alert")
	t.Setenv("ARBWATCH_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ARBWATCH_CRAWLER_INTERVAL", "2s")
	t.Setenv("ARBWATCH_SERVER_ENABLED", "false")
	t.Setenv("ARBWATCH_ALERTS_DEFAULT_THRESHOLD", "7.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "alert", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.Crawler.Interval.Duration)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, 7.5, cfg.Alerts.DefaultThreshold)
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	cfg := Defaults()

	t.Setenv("ARBWATCH_REDIS_DB", "not-a-number")
	t.Setenv("ARBWATCH_CRAWLER_INTERVAL", "soon")
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, time.Second, cfg.Crawler.Interval.Duration)
}
