package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/alert"
	"github.com/alanyoungcy/arbwatch/internal/crawler"
	"github.com/alanyoungcy/arbwatch/internal/detector"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
)

// CrawlMode runs price ingestion only: the polling supervisor, the retention
// cleaner, and the ops HTTP server. No alerts are produced.
func (a *App) CrawlMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting crawl mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startCrawler(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// AlertMode runs detection and delivery against an already-populated price
// store, plus the ops HTTP server. Nothing is polled; a crawl-mode process is
// expected to share the store.
func (a *App) AlertMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting alert mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startScheduler(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// FullMode runs everything in one process: ingestion, retention, detection,
// delivery, and the ops HTTP server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startCrawler(ctx, g, deps)
	a.startScheduler(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startCrawler adds the polling supervisor and, when history is enabled, the
// retention cleaner to the errgroup.
func (a *App) startCrawler(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	supervisor := crawler.NewSupervisor(
		deps.Fetcher,
		deps.Registry,
		deps.Prices,
		deps.Histories,
		a.cfg.CoinMap(),
		a.cfg.Crawler.Interval.Duration,
		a.cfg.Crawler.HistoryEnabled,
		a.logger,
	)
	g.Go(func() error {
		return supervisor.Run(ctx)
	})

	if a.cfg.Crawler.HistoryEnabled {
		cleaner := crawler.NewCleaner(
			deps.Histories,
			a.cfg.CoinMap(),
			a.cfg.History.Retention.Duration,
			a.cfg.History.SweepInterval.Duration,
			deps.BlobWriter,
			a.cfg.History.ArchivePrefix,
			a.logger,
		)
		g.Go(func() error {
			return cleaner.Run(ctx)
		})
	}
}

// startScheduler adds the per-subscriber detection loops to the errgroup.
func (a *App) startScheduler(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	det := detector.New(deps.Prices, a.logger)
	scheduler := alert.NewScheduler(det, deps.Subscribers, deps.Alerts, deps.Notifier, a.logger)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
}

// startHTTPServer adds the ops HTTP server to the errgroup, with graceful
// shutdown on context cancellation. The alert endpoints register only in
// modes that carry an alert store.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.cfg.Mode, a.logger),
		Prices: handler.NewPriceHandler(deps.Prices, a.cfg.CoinMap(), a.logger),
	}
	if deps.Alerts != nil {
		handlers.Alerts = handler.NewAlertHandler(deps.Alerts, a.logger)
	}

	srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
