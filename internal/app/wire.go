package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/exchange"
	"github.com/alanyoungcy/arbwatch/internal/fetch"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/store/memory"
	"github.com/alanyoungcy/arbwatch/internal/store/postgres"
	"github.com/alanyoungcy/arbwatch/internal/store/redis"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	Registry *exchange.Registry
	Fetcher  *fetch.Fetcher

	// Stores
	Prices      domain.PriceStore
	Histories   domain.HistoryStore
	Subscribers domain.SubscriberStore
	Alerts      domain.AlertStore

	// Blob storage, nil unless history archival is enabled.
	BlobWriter domain.BlobWriter

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that run the subscriber scheduler.
func needsPostgres(mode string) bool {
	switch strings.ToLower(mode) {
	case "alert", "full":
		return true
	default:
		return false
	}
}

// needsCleaner returns true for modes that run the crawler, and with it the
// retention cleaner that archives to blob storage.
func needsCleaner(mode string) bool {
	switch strings.ToLower(mode) {
	case "crawl", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Exchange adapters and fetcher ---
	deps.Registry = exchange.NewRegistry(exchange.Endpoints{
		Poloniex: cfg.Exchanges.PoloniexURL,
		Kraken:   cfg.Exchanges.KrakenURL,
		Okcoin:   cfg.Exchanges.OkcoinURL,
		Gemini:   cfg.Exchanges.GeminiURL,
		Bitstamp: cfg.Exchanges.BitstampURL,
		Bittrex:  cfg.Exchanges.BittrexURL,
		Bitfinex: cfg.Exchanges.BitfinexURL,
	})
	deps.Fetcher = fetch.New(deps.Registry, cfg.Crawler.FetchTimeout.Duration, logger)

	// --- Price and history stores ---
	switch strings.ToLower(cfg.Store.Backend) {
	case "memory":
		deps.Prices = memory.NewPriceStore()
		deps.Histories = memory.NewHistoryStore()
	default:
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Prices = redis.NewPriceStore(redisClient, cfg.CoinMap())
		deps.Histories = redis.NewHistoryStore(redisClient)
	}

	// --- PostgreSQL (only for modes that run the alert scheduler) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Subscribers = postgres.NewSubscriberStore(pool)
		deps.Alerts = postgres.NewAlertStore(pool)
	}

	// --- S3 blob storage (only when the cleaner archives history) ---
	if cfg.History.ArchiveEnabled && needsCleaner(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
