package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// HistoryStore implements domain.HistoryStore using one Redis list per
// relative-age bucket at key "hist:{coin}:{exchange}:{bucket}". Entries are
// JSON-encoded HistoryEntry values in insertion order; appends land in bucket
// 0 and rewrites redistribute every retained entry.
type HistoryStore struct {
	rdb *redis.Client
}

// NewHistoryStore creates a HistoryStore backed by the given Client.
func NewHistoryStore(c *Client) *HistoryStore {
	return &HistoryStore{rdb: c.Underlying()}
}

func bucketKey(coin, exchange string, bucket int) string {
	return "hist:" + coin + ":" + exchange + ":" + strconv.Itoa(bucket)
}

// EnsureExists is a no-op for the Redis backend: bucket lists are created on
// first append, and reads treat missing keys as empty buckets.
func (s *HistoryStore) EnsureExists(context.Context, string, string) error {
	return nil
}

// Append records a snapshot into the youngest bucket.
func (s *HistoryStore) Append(ctx context.Context, coin, exchange string, ts time.Time, ask, bid *float64) error {
	entry := domain.HistoryEntry{Time: ts, Ask: ask, Bid: bid}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal history entry: %w", err)
	}
	key := bucketKey(coin, exchange, 0)
	if err := s.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("redis: append %s: %w", key, err)
	}
	return nil
}

// Read returns the pair's full history across all buckets, youngest bucket
// first, preserving insertion order within each bucket.
func (s *HistoryStore) Read(ctx context.Context, coin, exchange string) ([]domain.HistoryEntry, error) {
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.StringSliceCmd, domain.HistoryBuckets)
	for b := 0; b < domain.HistoryBuckets; b++ {
		cmds[b] = pipe.LRange(ctx, bucketKey(coin, exchange, b), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: read history %s/%s: %w", coin, exchange, err)
	}

	var entries []domain.HistoryEntry
	for b, cmd := range cmds {
		raws, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("redis: read history bucket %d for %s/%s: %w", b, coin, exchange, err)
		}
		for _, raw := range raws {
			var entry domain.HistoryEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, fmt.Errorf("redis: decode history entry in %s/%s: %w", coin, exchange, err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Rewrite replaces the pair's bucketed history atomically, re-bucketing each
// entry by its age relative to asOf.
func (s *HistoryStore) Rewrite(ctx context.Context, coin, exchange string, entries []domain.HistoryEntry, asOf time.Time) error {
	buckets := make([][]interface{}, domain.HistoryBuckets)
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("redis: marshal history entry: %w", err)
		}
		b := domain.BucketFor(entry.Time, asOf)
		buckets[b] = append(buckets[b], data)
	}

	pipe := s.rdb.TxPipeline()
	for b := 0; b < domain.HistoryBuckets; b++ {
		key := bucketKey(coin, exchange, b)
		pipe.Del(ctx, key)
		if len(buckets[b]) > 0 {
			pipe.RPush(ctx, key, buckets[b]...)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: rewrite history %s/%s: %w", coin, exchange, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
