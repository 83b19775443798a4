// Package crawler runs the polling tasks that keep the price and history
// stores current.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/exchange"
	"github.com/alanyoungcy/arbwatch/internal/fetch"
)

// Supervisor plans one polling task per (coin, exchange) pair, collapses the
// pairs of batch-capable exchanges into a single task, and runs every task on
// its own goroutine until the context is cancelled. Tasks are isolated: one
// task failing or stalling never affects its siblings.
type Supervisor struct {
	fetcher        *fetch.Fetcher
	registry       *exchange.Registry
	prices         domain.PriceStore
	histories      domain.HistoryStore
	coinMap        domain.CoinMap
	interval       time.Duration
	historyEnabled bool
	logger         *slog.Logger
}

// NewSupervisor creates a Supervisor polling every pair in coinMap at the
// given base interval.
func NewSupervisor(
	fetcher *fetch.Fetcher,
	registry *exchange.Registry,
	prices domain.PriceStore,
	histories domain.HistoryStore,
	coinMap domain.CoinMap,
	interval time.Duration,
	historyEnabled bool,
	logger *slog.Logger,
) *Supervisor {
	return &Supervisor{
		fetcher:        fetcher,
		registry:       registry,
		prices:         prices,
		histories:      histories,
		coinMap:        coinMap,
		interval:       interval,
		historyEnabled: historyEnabled,
		logger:         logger.With(slog.String("component", "crawler")),
	}
}

// task is one polling unit: a single pair, or every coin of a batch exchange.
type task struct {
	exchange string
	coins    []string // canonical identifiers
	batch    bool
	interval time.Duration
}

// Run plans and launches all polling tasks and blocks until every task has
// stopped. It returns an error only when planning fails; an exchange name in
// the coin map that no adapter covers is a configuration mistake, not a
// runtime condition to ride out.
func (s *Supervisor) Run(ctx context.Context) error {
	tasks, err := s.plan()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "starting polling tasks",
		slog.Int("tasks", len(tasks)),
		slog.Int("coins", len(s.coinMap.Coins())),
	)

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			s.runTask(ctx, t)
		}(t)
	}
	wg.Wait()
	return nil
}

// plan expands the coin map into tasks.
func (s *Supervisor) plan() ([]task, error) {
	var tasks []task
	for _, exchangeName := range s.coinMap.Exchanges() {
		adapter, ok := s.registry.Get(exchangeName)
		if !ok {
			return nil, fmt.Errorf("crawler: exchange %q in coin map: %w", exchangeName, domain.ErrUnknownExchange)
		}

		interval := s.interval
		if exchangeName == "kraken" {
			// Kraken rate-limits per call; pace by one second per tracked coin.
			interval = time.Duration(len(s.coinMap.Coins())) * time.Second
		}

		coins := s.coinMap.CoinsOn(exchangeName)
		if adapter.Batch {
			tasks = append(tasks, task{exchange: exchangeName, coins: coins, batch: true, interval: interval})
			continue
		}
		for _, coin := range coins {
			tasks = append(tasks, task{exchange: exchangeName, coins: []string{coin}, interval: interval})
		}
	}
	return tasks, nil
}

// runTask initializes the task's store records and then polls until the
// context is cancelled. Initialization failure stops only this task.
func (s *Supervisor) runTask(ctx context.Context, t task) {
	logger := s.logger.With(slog.String("exchange", t.exchange))

	for _, coin := range t.coins {
		if err := s.prices.EnsureExists(ctx, coin, t.exchange); err != nil {
			logger.ErrorContext(ctx, "price record init failed, stopping task",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
			return
		}
		if err := s.histories.EnsureExists(ctx, coin, t.exchange); err != nil {
			logger.ErrorContext(ctx, "history init failed, stopping task",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
			return
		}
	}

	for {
		start := time.Now()
		s.poll(ctx, t, logger)
		if !sleepRemainder(ctx, t.interval, time.Since(start)) {
			return
		}
	}
}

// poll runs one fetch-and-store iteration. A panic anywhere in the iteration
// is contained here so the task survives to its next tick.
func (s *Supervisor) poll(ctx context.Context, t task, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "polling iteration panicked",
				slog.Any("panic", r))
		}
	}()

	if t.batch {
		canonical := make(map[string]string, len(t.coins))
		natives := make([]string, 0, len(t.coins))
		for _, coin := range t.coins {
			native, ok := s.coinMap.Native(coin, t.exchange)
			if !ok {
				continue
			}
			canonical[native] = coin
			natives = append(natives, native)
		}

		results := s.fetcher.FetchBatch(ctx, natives, t.exchange)
		for native, res := range results {
			s.store(ctx, canonical[native], t.exchange, res, logger)
		}
		return
	}

	coin := t.coins[0]
	native, ok := s.coinMap.Native(coin, t.exchange)
	if !ok {
		return
	}
	res := s.fetcher.Fetch(ctx, native, t.exchange)
	s.store(ctx, coin, t.exchange, res, logger)
}

// store upserts the fetched quote and, when enabled, appends it to history.
// History records the fetch outcome verbatim, absent fields included, so the
// archive reflects what the crawler actually saw.
func (s *Supervisor) store(ctx context.Context, coin, exchangeName string, res fetch.Result, logger *slog.Logger) {
	if err := s.prices.Upsert(ctx, coin, exchangeName, res.Ask, res.Bid, res.ObservedAt); err != nil {
		logger.WarnContext(ctx, "price upsert failed",
			slog.String("coin", coin),
			slog.String("error", err.Error()))
	}
	if s.historyEnabled {
		if err := s.histories.Append(ctx, coin, exchangeName, res.ObservedAt, res.Ask, res.Bid); err != nil {
			logger.WarnContext(ctx, "history append failed",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
		}
	}
}

// sleepRemainder sleeps out the rest of the interval after an iteration that
// took elapsed, returning false when the context is cancelled first. An
// iteration that overran its interval starts the next one immediately.
func sleepRemainder(ctx context.Context, interval, elapsed time.Duration) bool {
	remaining := interval - elapsed
	if remaining < 0 {
		remaining = 0
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
