package domain

import (
	"math"
	"sort"
	"time"
)

// Quote is the best ask/bid known for one coin on one exchange at a point in
// time. Ask and Bid are nil when the last fetch failed or the exchange did not
// report the field; nil is "no value", never zero.
type Quote struct {
	Coin       string
	Exchange   string
	Ask        *float64
	Bid        *float64
	ObservedAt time.Time
}

// Complete reports whether both sides of the quote are present. Only complete
// quotes participate in spread detection.
func (q Quote) Complete() bool {
	return q.Ask != nil && q.Bid != nil
}

// PriceRecord is the full live state for one coin: one quote sub-record per
// exchange that has ever been polled for it.
type PriceRecord struct {
	Coin      string
	Exchanges map[string]Quote
}

// HistoryEntry is one historical price snapshot for a (coin, exchange) pair.
type HistoryEntry struct {
	Time time.Time `json:"time"`
	Ask  *float64  `json:"ask"`
	Bid  *float64  `json:"bid"`
}

// HistoryBuckets is the number of relative-age buckets a pair's history is
// partitioned into. Bucket 0 receives fresh appends; a rewrite places entries
// aged up to an hour in bucket 1, up to two hours in bucket 2, and so on, with
// everything older than the window clamped into the last bucket.
const HistoryBuckets = 25

// BucketFor computes the relative-age bucket for an entry observed at t, as of
// asOf: ceil(elapsed hours), clamped to the bucket range. Buckets are relative
// age, so placement must be recomputed against a fresh asOf on every rewrite.
func BucketFor(t, asOf time.Time) int {
	bucket := int(math.Ceil(asOf.Sub(t).Seconds() / 3600))
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= HistoryBuckets {
		bucket = HistoryBuckets - 1
	}
	return bucket
}

// Pair identifies one (coin, exchange) polling target.
type Pair struct {
	Coin     string
	Exchange string
}

// CoinMap is the static mapping from a canonical coin identifier to the
// exchanges that trade it and the exchange-native symbol on each. It is loaded
// once at startup and never mutated; changing it requires a restart.
type CoinMap map[string]map[string]string

// Native returns the exchange-native symbol for coin on exchange. The second
// return is false when the pair is not tradable on that exchange.
func (m CoinMap) Native(coin, exchange string) (string, bool) {
	exchanges, ok := m[coin]
	if !ok {
		return "", false
	}
	native, ok := exchanges[exchange]
	return native, ok
}

// Coins returns all canonical coin identifiers in sorted order.
func (m CoinMap) Coins() []string {
	coins := make([]string, 0, len(m))
	for coin := range m {
		coins = append(coins, coin)
	}
	sort.Strings(coins)
	return coins
}

// Exchanges returns the distinct exchange identifiers appearing anywhere in
// the map, sorted.
func (m CoinMap) Exchanges() []string {
	seen := make(map[string]bool)
	for _, exchanges := range m {
		for exchange := range exchanges {
			seen[exchange] = true
		}
	}
	out := make([]string, 0, len(seen))
	for exchange := range seen {
		out = append(out, exchange)
	}
	sort.Strings(out)
	return out
}

// CoinsOn returns the canonical coins tradable on the given exchange, sorted.
func (m CoinMap) CoinsOn(exchange string) []string {
	var coins []string
	for coin, exchanges := range m {
		if _, ok := exchanges[exchange]; ok {
			coins = append(coins, coin)
		}
	}
	sort.Strings(coins)
	return coins
}

// Pairs returns every (coin, exchange) combination in the map, sorted by coin
// then exchange, so enumeration order is deterministic.
func (m CoinMap) Pairs() []Pair {
	var pairs []Pair
	for _, coin := range m.Coins() {
		exchanges := make([]string, 0, len(m[coin]))
		for exchange := range m[coin] {
			exchanges = append(exchanges, exchange)
		}
		sort.Strings(exchanges)
		for _, exchange := range exchanges {
			pairs = append(pairs, Pair{Coin: coin, Exchange: exchange})
		}
	}
	return pairs
}

// Float returns a pointer to v. Convenience for building quotes.
func Float(v float64) *float64 {
	return &v
}
