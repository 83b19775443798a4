package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// historyRecord is one pair's bucketed history. Bucket 0 holds the youngest
// entries; buckets are relative age, recomputed on every rewrite.
type historyRecord struct {
	mu      sync.Mutex
	buckets [domain.HistoryBuckets][]domain.HistoryEntry
}

// HistoryStore holds hour-bucketed price history per (coin, exchange) pair in
// memory.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]*historyRecord // coin + "\x00" + exchange
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]*historyRecord)}
}

func historyKey(coin, exchange string) string {
	return coin + "\x00" + exchange
}

// record returns the pair's history record, creating it if absent.
func (s *HistoryStore) record(coin, exchange string) *historyRecord {
	key := historyKey(coin, exchange)

	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok = s.records[key]
	if !ok {
		rec = &historyRecord{}
		s.records[key] = rec
	}
	return rec
}

// EnsureExists creates an empty bucketed history for the pair if none exists.
func (s *HistoryStore) EnsureExists(_ context.Context, coin, exchange string) error {
	s.record(coin, exchange)
	return nil
}

// Append records a snapshot into the youngest bucket.
func (s *HistoryStore) Append(_ context.Context, coin, exchange string, ts time.Time, ask, bid *float64) error {
	rec := s.record(coin, exchange)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.buckets[0] = append(rec.buckets[0], domain.HistoryEntry{Time: ts, Ask: ask, Bid: bid})
	return nil
}

// Read returns the pair's full history across all buckets.
func (s *HistoryStore) Read(_ context.Context, coin, exchange string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	rec, ok := s.records[historyKey(coin, exchange)]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []domain.HistoryEntry
	for b := range rec.buckets {
		out = append(out, rec.buckets[b]...)
	}
	return out, nil
}

// Rewrite replaces the pair's history, re-bucketing each entry by its age
// relative to asOf.
func (s *HistoryStore) Rewrite(_ context.Context, coin, exchange string, entries []domain.HistoryEntry, asOf time.Time) error {
	rec := s.record(coin, exchange)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for b := range rec.buckets {
		rec.buckets[b] = nil
	}
	for _, entry := range entries {
		b := domain.BucketFor(entry.Time, asOf)
		rec.buckets[b] = append(rec.buckets[b], entry)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
