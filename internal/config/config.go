// Package config defines the top-level configuration for the arbitrage
// watcher and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Crawler   CrawlerConfig                `toml:"crawler"`
	History   HistoryConfig                `toml:"history"`
	Store     StoreConfig                  `toml:"store"`
	Redis     RedisConfig                  `toml:"redis"`
	Postgres  PostgresConfig               `toml:"postgres"`
	S3        S3Config                     `toml:"s3"`
	Exchanges ExchangesConfig              `toml:"exchanges"`
	Coins     map[string]map[string]string `toml:"coins"`
	Alerts    AlertsConfig                 `toml:"alerts"`
	Notify    NotifyConfig                 `toml:"notify"`
	Server    ServerConfig                 `toml:"server"`
	Mode      string                       `toml:"mode"`
	LogLevel  string                       `toml:"log_level"`
}

// CoinMap returns the configured coin map as the domain type.
func (c *Config) CoinMap() domain.CoinMap {
	return domain.CoinMap(c.Coins)
}

// CrawlerConfig holds polling parameters for the price-ingestion engine.
type CrawlerConfig struct {
	// Interval is the target wall-clock cadence of each polling task.
	Interval duration `toml:"interval"`
	// FetchTimeout bounds a single exchange round trip.
	FetchTimeout duration `toml:"fetch_timeout"`
	// HistoryEnabled toggles appending every fetched quote to the history
	// store in addition to the live upsert.
	HistoryEnabled bool `toml:"history_enabled"`
}

// HistoryConfig holds retention parameters for the bucketed price history.
type HistoryConfig struct {
	// Retention is how long history entries are kept, measured from sweep time.
	Retention duration `toml:"retention"`
	// SweepInterval is the cadence of the retention cleaner, independent of
	// the polling interval.
	SweepInterval duration `toml:"sweep_interval"`
	// ArchiveEnabled uploads discarded entries to blob storage before they
	// are dropped.
	ArchiveEnabled bool   `toml:"archive_enabled"`
	ArchivePrefix  string `toml:"archive_prefix"`
}

// StoreConfig selects the price/history store backend.
type StoreConfig struct {
	// Backend is "redis" or "memory". The memory backend is for development
	// and single-process runs; it loses state on restart.
	Backend string `toml:"backend"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the subscriber
// and alert stores.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for history archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ExchangesConfig holds the public ticker endpoints per exchange. The set of
// exchanges is closed; these only exist so operators can point at mirrors or
// test doubles.
type ExchangesConfig struct {
	PoloniexURL string `toml:"poloniex_url"`
	KrakenURL   string `toml:"kraken_url"`
	OkcoinURL   string `toml:"okcoin_url"`
	GeminiURL   string `toml:"gemini_url"`
	BitstampURL string `toml:"bitstamp_url"`
	BittrexURL  string `toml:"bittrex_url"`
	BitfinexURL string `toml:"bitfinex_url"`
}

// AlertsConfig holds defaults applied to newly registered subscribers.
type AlertsConfig struct {
	DefaultThreshold float64 `toml:"default_threshold"`
	DefaultInterval  int     `toml:"default_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// ServerConfig holds parameters for the read-only ops HTTP server.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The coin
// map covers the pairs the seven supported exchanges all quote; operators
// extend it in TOML.
func Defaults() Config {
	return Config{
		Crawler: CrawlerConfig{
			Interval:       duration{time.Second},
			FetchTimeout:   duration{10 * time.Second},
			HistoryEnabled: true,
		},
		History: HistoryConfig{
			Retention:      duration{24 * time.Hour},
			SweepInterval:  duration{time.Hour},
			ArchiveEnabled: false,
			ArchivePrefix:  "history",
		},
		Store: StoreConfig{
			Backend: "redis",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbwatch-history",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Exchanges: ExchangesConfig{
			PoloniexURL: "https://poloniex.com/public?command=returnTicker",
			KrakenURL:   "https://api.kraken.com/0/public/Ticker?pair=",
			OkcoinURL:   "https://www.okcoin.com/api/v1/ticker.do?symbol=",
			GeminiURL:   "https://api.gemini.com/v1/pubticker/",
			BitstampURL: "https://www.bitstamp.net/api/v2/ticker/",
			BittrexURL:  "https://bittrex.com/api/v1.1/public/getticker?market=",
			BitfinexURL: "https://api.bitfinex.com/v1/pubticker/",
		},
		Coins: map[string]map[string]string{
			"BTC/USD": {
				"poloniex": "USDT_BTC",
				"kraken":   "XBTUSD",
				"okcoin":   "btc_usd",
				"gemini":   "btcusd",
				"bitstamp": "btcusd",
				"bittrex":  "USDT-BTC",
				"bitfinex": "btcusd",
			},
			"ETH/USD": {
				"poloniex": "USDT_ETH",
				"kraken":   "ETHUSD",
				"gemini":   "ethusd",
				"bitstamp": "ethusd",
				"bittrex":  "USDT-ETH",
				"bitfinex": "ethusd",
			},
			"ETH/BTC": {
				"poloniex": "BTC_ETH",
				"kraken":   "ETHXBT",
				"gemini":   "ethbtc",
				"bitstamp": "ethbtc",
				"bittrex":  "BTC-ETH",
				"bitfinex": "ethbtc",
			},
			"LTC/USD": {
				"poloniex": "USDT_LTC",
				"kraken":   "LTCUSD",
				"bitstamp": "ltcusd",
				"bittrex":  "USDT-LTC",
				"bitfinex": "ltcusd",
			},
			"LTC/BTC": {
				"poloniex": "BTC_LTC",
				"kraken":   "LTCXBT",
				"bitstamp": "ltcbtc",
				"bittrex":  "BTC-LTC",
				"bitfinex": "ltcbtc",
			},
		},
		Alerts: AlertsConfig{
			DefaultThreshold: 3.0,
			DefaultInterval:  300,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"crawl": true,
	"alert": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBackends enumerates the accepted values for Store.Backend.
var validBackends = map[string]bool{
	"redis":  true,
	"memory": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: crawl, alert, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		errs = append(errs, fmt.Sprintf("unknown store backend %q (valid: redis, memory)", c.Store.Backend))
	}

	// Crawler
	if c.Crawler.Interval.Duration <= 0 {
		errs = append(errs, "crawler: interval must be > 0")
	}
	if c.Crawler.FetchTimeout.Duration <= 0 {
		errs = append(errs, "crawler: fetch_timeout must be > 0")
	}

	// History
	if c.Crawler.HistoryEnabled {
		if c.History.Retention.Duration <= 0 {
			errs = append(errs, "history: retention must be > 0 when history is enabled")
		}
		if c.History.SweepInterval.Duration <= 0 {
			errs = append(errs, "history: sweep_interval must be > 0 when history is enabled")
		}
	}

	// Coin map
	if len(c.Coins) == 0 {
		errs = append(errs, "coins: at least one coin mapping is required")
	}
	for coin, exchanges := range c.Coins {
		if len(exchanges) == 0 {
			errs = append(errs, fmt.Sprintf("coins: %q maps to no exchanges", coin))
		}
	}

	// Redis is only required when it is the selected backend.
	if strings.ToLower(c.Store.Backend) == "redis" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres is needed for modes that run the subscriber scheduler.
	if mode == "alert" || mode == "full" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3 is only checked when archival is on.
	if c.History.ArchiveEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when history archival is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when history archival is enabled")
		}
	}

	// Alerts
	if c.Alerts.DefaultThreshold <= 0 {
		errs = append(errs, "alerts: default_threshold must be > 0")
	}
	if c.Alerts.DefaultInterval <= 0 {
		errs = append(errs, "alerts: default_interval must be > 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
