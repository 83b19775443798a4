// Package memory implements the domain store interfaces with in-process maps.
// It backs development runs and tests; state is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// quoteRecord is the mutable live quote for one (coin, exchange) pair. Each
// record carries its own lock so concurrent upserts to different pairs never
// contend.
type quoteRecord struct {
	mu  sync.RWMutex
	ask *float64
	bid *float64
	ts  time.Time
}

// PriceStore holds the latest quote per (coin, exchange) pair in memory.
type PriceStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*quoteRecord // coin -> exchange -> record
}

// NewPriceStore creates an empty PriceStore.
func NewPriceStore() *PriceStore {
	return &PriceStore{records: make(map[string]map[string]*quoteRecord)}
}

// EnsureExists creates an empty record for the pair if none exists.
func (s *PriceStore) EnsureExists(_ context.Context, coin, exchange string) error {
	s.record(coin, exchange)
	return nil
}

// record returns the pair's record, creating it if absent.
func (s *PriceStore) record(coin, exchange string) *quoteRecord {
	s.mu.RLock()
	if exchanges, ok := s.records[coin]; ok {
		if rec, ok := exchanges[exchange]; ok {
			s.mu.RUnlock()
			return rec
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	exchanges, ok := s.records[coin]
	if !ok {
		exchanges = make(map[string]*quoteRecord)
		s.records[coin] = exchanges
	}
	rec, ok := exchanges[exchange]
	if !ok {
		rec = &quoteRecord{}
		exchanges[exchange] = rec
	}
	return rec
}

// Upsert sets the latest ask/bid for the pair. Nil fields are skipped so a
// failed fetch never clears the last known good price.
func (s *PriceStore) Upsert(_ context.Context, coin, exchange string, ask, bid *float64, ts time.Time) error {
	rec := s.record(coin, exchange)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if ask != nil {
		v := *ask
		rec.ask = &v
	}
	if bid != nil {
		v := *bid
		rec.bid = &v
	}
	rec.ts = ts
	return nil
}

// Get returns the latest quote for the pair.
func (s *PriceStore) Get(_ context.Context, coin, exchange string) (domain.Quote, error) {
	s.mu.RLock()
	exchanges, ok := s.records[coin]
	if !ok {
		s.mu.RUnlock()
		return domain.Quote{}, domain.ErrNotFound
	}
	rec, ok := exchanges[exchange]
	s.mu.RUnlock()
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return rec.quote(coin, exchange), nil
}

// GetRecord returns the coin's quotes across every exchange with a record.
func (s *PriceStore) GetRecord(_ context.Context, coin string) (domain.PriceRecord, error) {
	s.mu.RLock()
	exchanges, ok := s.records[coin]
	if !ok {
		s.mu.RUnlock()
		return domain.PriceRecord{}, domain.ErrNotFound
	}
	// Snapshot the exchange set before releasing the structure lock.
	recs := make(map[string]*quoteRecord, len(exchanges))
	for exchange, rec := range exchanges {
		recs[exchange] = rec
	}
	s.mu.RUnlock()

	out := domain.PriceRecord{Coin: coin, Exchanges: make(map[string]domain.Quote, len(recs))}
	for exchange, rec := range recs {
		out.Exchanges[exchange] = rec.quote(coin, exchange)
	}
	return out, nil
}

// quote copies the record into an immutable Quote.
func (r *quoteRecord) quote(coin, exchange string) domain.Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := domain.Quote{Coin: coin, Exchange: exchange, ObservedAt: r.ts}
	if r.ask != nil {
		v := *r.ask
		q.Ask = &v
	}
	if r.bid != nil {
		v := *r.bid
		q.Bid = &v
	}
	return q
}

// Compile-time interface check.
var _ domain.PriceStore = (*PriceStore)(nil)
