// Package fetch performs single exchange round trips and normalizes the
// outcome. Its contract is "always returns, never propagates": any network,
// decode, or parse failure becomes an absent-field result plus a warning log,
// so polling loops need no per-iteration error handling.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/exchange"
)

// maxBodyBytes bounds how much of an exchange response is read. The batch
// ticker is the largest payload and stays well under this.
const maxBodyBytes = 4 << 20

// Result is the outcome of one fetch for one coin. Ask/Bid are nil when the
// fetch or parse failed; ObservedAt is the fetch completion time.
type Result struct {
	Ask        *float64
	Bid        *float64
	ObservedAt time.Time
}

// Fetcher retrieves quotes from exchange ticker endpoints.
type Fetcher struct {
	registry *exchange.Registry
	client   *http.Client
	logger   *slog.Logger
}

// New creates a Fetcher. timeout bounds each round trip; a timed-out fetch
// resolves to an absent result rather than blocking its polling task.
func New(registry *exchange.Registry, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		registry: registry,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "fetcher")),
	}
}

// Fetch performs one GET for one exchange-native coin symbol on one exchange
// and returns the parsed quote. It never returns an error; failures yield a
// Result with nil ask/bid.
func (f *Fetcher) Fetch(ctx context.Context, coin, exchangeName string) Result {
	res := Result{ObservedAt: time.Now().UTC()}

	adapter, ok := f.registry.Get(exchangeName)
	if !ok {
		f.logger.WarnContext(ctx, "fetch for unknown exchange",
			slog.String("exchange", exchangeName),
			slog.String("coin", coin),
		)
		return res
	}

	body, err := f.get(ctx, adapter.URL(coin))
	if err != nil {
		f.logger.WarnContext(ctx, "fetch failed",
			slog.String("exchange", exchangeName),
			slog.String("coin", coin),
			slog.String("error", err.Error()),
		)
		return res
	}

	ab, err := adapter.Parse(body, coin)
	if err != nil {
		f.logger.WarnContext(ctx, "parse failed",
			slog.String("exchange", exchangeName),
			slog.String("coin", coin),
			slog.String("error", err.Error()),
		)
		return res
	}

	res.Ask = &ab.Ask
	res.Bid = &ab.Bid
	res.ObservedAt = time.Now().UTC()
	return res
}

// FetchBatch performs one GET against a batch-capable exchange and returns a
// result per requested exchange-native coin symbol. Every requested coin is
// present in the returned map; coins that failed to parse carry nil ask/bid.
// Like Fetch it never returns an error.
func (f *Fetcher) FetchBatch(ctx context.Context, coins []string, exchangeName string) map[string]Result {
	now := time.Now().UTC()
	results := make(map[string]Result, len(coins))
	for _, coin := range coins {
		results[coin] = Result{ObservedAt: now}
	}

	adapter, ok := f.registry.Get(exchangeName)
	if !ok || adapter.ParseBatch == nil {
		f.logger.WarnContext(ctx, "batch fetch for non-batch exchange",
			slog.String("exchange", exchangeName),
		)
		return results
	}

	body, err := f.get(ctx, adapter.URL(""))
	if err != nil {
		f.logger.WarnContext(ctx, "batch fetch failed",
			slog.String("exchange", exchangeName),
			slog.String("error", err.Error()),
		)
		return results
	}

	quotes, errs := adapter.ParseBatch(body, coins)
	for coin, parseErr := range errs {
		f.logger.WarnContext(ctx, "batch parse failed for coin",
			slog.String("exchange", exchangeName),
			slog.String("coin", coin),
			slog.String("error", parseErr.Error()),
		)
	}

	observed := time.Now().UTC()
	for coin, ab := range quotes {
		ask, bid := ab.Ask, ab.Bid
		results[coin] = Result{Ask: &ask, Bid: &bid, ObservedAt: observed}
	}
	return results
}

// get performs the HTTP round trip and returns the response body.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
