package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PriceStore implements domain.PriceStore using one Redis hash per
// (coin, exchange) pair at key "price:{coin}:{exchange}" with fields "ask",
// "bid", and "ts" (Unix nanosecond timestamp). HSet of only the present
// fields gives the upsert contract for free: an absent side never clears a
// stored value, and writes to different pairs never contend.
type PriceStore struct {
	rdb     *redis.Client
	coinMap domain.CoinMap
}

// NewPriceStore creates a PriceStore backed by the given Client. The coin map
// supplies the exchange sub-record set per coin for GetRecord reads.
func NewPriceStore(c *Client, coinMap domain.CoinMap) *PriceStore {
	return &PriceStore{rdb: c.Underlying(), coinMap: coinMap}
}

func priceKey(coin, exchange string) string {
	return "price:" + coin + ":" + exchange
}

// EnsureExists creates the pair's hash if absent by stamping a creation time.
func (s *PriceStore) EnsureExists(ctx context.Context, coin, exchange string) error {
	key := priceKey(coin, exchange)
	if err := s.rdb.HSetNX(ctx, key, "ts", strconv.FormatInt(time.Now().UTC().UnixNano(), 10)).Err(); err != nil {
		return fmt.Errorf("redis: ensure %s: %w", key, err)
	}
	return nil
}

// Upsert stores the latest quote fields for the pair, skipping nil fields.
func (s *PriceStore) Upsert(ctx context.Context, coin, exchange string, ask, bid *float64, ts time.Time) error {
	key := priceKey(coin, exchange)
	fields := map[string]interface{}{
		"ts": strconv.FormatInt(ts.UnixNano(), 10),
	}
	if ask != nil {
		fields["ask"] = strconv.FormatFloat(*ask, 'f', -1, 64)
	}
	if bid != nil {
		fields["bid"] = strconv.FormatFloat(*bid, 'f', -1, 64)
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: upsert %s: %w", key, err)
	}
	return nil
}

// Get retrieves the latest quote for the pair. It returns domain.ErrNotFound
// when the key does not exist.
func (s *PriceStore) Get(ctx context.Context, coin, exchange string) (domain.Quote, error) {
	key := priceKey(coin, exchange)
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}
	return quoteFromHash(coin, exchange, vals)
}

// GetRecord retrieves the coin's quotes for every exchange it maps to, using
// a single pipeline round trip. Exchanges without a record are omitted.
func (s *PriceStore) GetRecord(ctx context.Context, coin string) (domain.PriceRecord, error) {
	exchanges, ok := s.coinMap[coin]
	if !ok {
		return domain.PriceRecord{}, domain.ErrNotFound
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(exchanges))
	for exchange := range exchanges {
		cmds[exchange] = pipe.HGetAll(ctx, priceKey(coin, exchange))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.PriceRecord{}, fmt.Errorf("redis: get record %s: %w", coin, err)
	}

	record := domain.PriceRecord{Coin: coin, Exchanges: make(map[string]domain.Quote, len(exchanges))}
	for exchange, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, err := quoteFromHash(coin, exchange, vals)
		if err != nil {
			continue
		}
		record.Exchanges[exchange] = q
	}
	return record, nil
}

// quoteFromHash decodes the stored hash fields into a Quote.
func quoteFromHash(coin, exchange string, vals map[string]string) (domain.Quote, error) {
	q := domain.Quote{Coin: coin, Exchange: exchange}

	if raw, ok := vals["ask"]; ok {
		ask, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("redis: parse ask for %s/%s: %w", coin, exchange, err)
		}
		q.Ask = &ask
	}
	if raw, ok := vals["bid"]; ok {
		bid, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("redis: parse bid for %s/%s: %w", coin, exchange, err)
		}
		q.Bid = &bid
	}
	if raw, ok := vals["ts"]; ok {
		tsNano, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("redis: parse ts for %s/%s: %w", coin, exchange, err)
		}
		q.ObservedAt = time.Unix(0, tsNano).UTC()
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.PriceStore = (*PriceStore)(nil)
