package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	// Enumerated fields are compared all over the codebase; normalize them once
	// so "Full" and "full" are the same mode everywhere.
	cfg.Mode = strings.ToLower(cfg.Mode)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Crawler
	setDuration(&cfg.Crawler.Interval, "ARBWATCH_CRAWLER_INTERVAL")
	setDuration(&cfg.Crawler.FetchTimeout, "ARBWATCH_CRAWLER_FETCH_TIMEOUT")
	setBool(&cfg.Crawler.HistoryEnabled, "ARBWATCH_CRAWLER_HISTORY_ENABLED")

	// History
	setDuration(&cfg.History.Retention, "ARBWATCH_HISTORY_RETENTION")
	setDuration(&cfg.History.SweepInterval, "ARBWATCH_HISTORY_SWEEP_INTERVAL")
	setBool(&cfg.History.ArchiveEnabled, "ARBWATCH_HISTORY_ARCHIVE_ENABLED")
	setStr(&cfg.History.ArchivePrefix, "ARBWATCH_HISTORY_ARCHIVE_PREFIX")

	// Store
	setStr(&cfg.Store.Backend, "ARBWATCH_STORE_BACKEND")

	// Redis
	setStr(&cfg.Redis.Addr, "ARBWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBWATCH_REDIS_TLS_ENABLED")

	// Postgres
	setStr(&cfg.Postgres.DSN, "ARBWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBWATCH_POSTGRES_RUN_MIGRATIONS")

	// S3
	setStr(&cfg.S3.Endpoint, "ARBWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBWATCH_S3_FORCE_PATH_STYLE")

	// Exchanges
	setStr(&cfg.Exchanges.PoloniexURL, "ARBWATCH_EXCHANGES_POLONIEX_URL")
	setStr(&cfg.Exchanges.KrakenURL, "ARBWATCH_EXCHANGES_KRAKEN_URL")
	setStr(&cfg.Exchanges.OkcoinURL, "ARBWATCH_EXCHANGES_OKCOIN_URL")
	setStr(&cfg.Exchanges.GeminiURL, "ARBWATCH_EXCHANGES_GEMINI_URL")
	setStr(&cfg.Exchanges.BitstampURL, "ARBWATCH_EXCHANGES_BITSTAMP_URL")
	setStr(&cfg.Exchanges.BittrexURL, "ARBWATCH_EXCHANGES_BITTREX_URL")
	setStr(&cfg.Exchanges.BitfinexURL, "ARBWATCH_EXCHANGES_BITFINEX_URL")

	// Alerts
	setFloat64(&cfg.Alerts.DefaultThreshold, "ARBWATCH_ALERTS_DEFAULT_THRESHOLD")
	setInt(&cfg.Alerts.DefaultInterval, "ARBWATCH_ALERTS_DEFAULT_INTERVAL")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "ARBWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBWATCH_NOTIFY_DISCORD_WEBHOOK_URL")

	// Server
	setBool(&cfg.Server.Enabled, "ARBWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBWATCH_SERVER_PORT")

	// Top-level
	setStr(&cfg.Mode, "ARBWATCH_MODE")
	setStr(&cfg.LogLevel, "ARBWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
