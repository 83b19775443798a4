// Package detector scans live price records for cross-exchange spreads.
package detector

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Detector compares every exchange pairing of a coin's live quotes and emits
// an alert when one venue's bid clears another's ask by more than a threshold.
type Detector struct {
	prices domain.PriceStore
	logger *slog.Logger
}

// New creates a Detector reading from the given price store.
func New(prices domain.PriceStore, logger *slog.Logger) *Detector {
	return &Detector{
		prices: prices,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// SpreadPercent computes the spread of bid over ask as a percentage of ask,
// rounded to two decimal places.
func SpreadPercent(bid, ask float64) float64 {
	return math.Round((bid-ask)/ask*100*100) / 100
}

// Detect runs one detection pass over the given coins, considering only the
// given exchanges, and returns an alert per qualifying exchange pair. A coin
// whose record cannot be read is logged and skipped so one bad lookup never
// blanks the whole run. Alerts carry no chat binding; callers attach one per
// delivery.
func (d *Detector) Detect(ctx context.Context, coins, exchanges []string, threshold float64) []domain.Alert {
	var alerts []domain.Alert

	allowed := make(map[string]bool, len(exchanges))
	for _, exchange := range exchanges {
		allowed[exchange] = true
	}

	for _, coin := range coins {
		record, err := d.prices.GetRecord(ctx, coin)
		if err != nil {
			d.logger.Warn("skipping coin, record read failed",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
			continue
		}

		// Only complete quotes on exchanges the caller watches participate.
		var names []string
		for name, quote := range record.Exchanges {
			if allowed[name] && quote.Complete() {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				a := record.Exchanges[names[i]]
				b := record.Exchanges[names[j]]
				if alert, ok := d.compare(coin, a, b, threshold); ok {
					alerts = append(alerts, alert)
				}
			}
		}
	}

	return alerts
}

// compare checks both directions of one exchange pairing and returns the
// first direction whose bid clears the opposite ask by more than threshold.
// At most one alert is produced per pairing.
func (d *Detector) compare(coin string, a, b domain.Quote, threshold float64) (domain.Alert, bool) {
	if *a.Bid > *b.Ask && SpreadPercent(*a.Bid, *b.Ask) > threshold {
		return d.alert(coin, a, b), true
	}
	if *b.Bid > *a.Ask && SpreadPercent(*b.Bid, *a.Ask) > threshold {
		return d.alert(coin, b, a), true
	}
	return domain.Alert{}, false
}

// alert builds the alert for higher's bid over lower's ask.
func (d *Detector) alert(coin string, higher, lower domain.Quote) domain.Alert {
	return domain.Alert{
		ID:             uuid.NewString(),
		Coin:           coin,
		HigherExchange: higher.Exchange,
		LowerExchange:  lower.Exchange,
		SpreadPercent:  SpreadPercent(*higher.Bid, *lower.Ask),
		DetectedAt:     time.Now().UTC(),
	}
}
