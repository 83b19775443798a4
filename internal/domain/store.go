package domain

import (
	"context"
	"io"
	"time"
)

// PriceStore holds the latest quote per (coin, exchange) pair. Implementations
// must allow concurrent upserts to different keys without cross-key contention;
// same-key races resolve last-writer-wins.
type PriceStore interface {
	// EnsureExists creates an empty record for the pair if none exists.
	// Idempotent.
	EnsureExists(ctx context.Context, coin, exchange string) error

	// Upsert sets the latest ask/bid for the pair, touching only present
	// fields: a nil ask or bid never clears a previously stored value, so a
	// transient fetch failure keeps the last known good price.
	Upsert(ctx context.Context, coin, exchange string, ask, bid *float64, ts time.Time) error

	// Get returns the latest quote for the pair, or ErrNotFound.
	Get(ctx context.Context, coin, exchange string) (Quote, error)

	// GetRecord returns the coin's quotes across every exchange that has a
	// record, or ErrNotFound when the coin is unknown.
	GetRecord(ctx context.Context, coin string) (PriceRecord, error)
}

// HistoryStore holds the hour-bucketed rolling price history per pair.
type HistoryStore interface {
	// EnsureExists creates an empty bucketed history for the pair if none
	// exists. Idempotent.
	EnsureExists(ctx context.Context, coin, exchange string) error

	// Append records a snapshot into the youngest bucket.
	Append(ctx context.Context, coin, exchange string, ts time.Time, ask, bid *float64) error

	// Read returns the pair's full history across all buckets, oldest bucket
	// contents first within each bucket's insertion order.
	Read(ctx context.Context, coin, exchange string) ([]HistoryEntry, error)

	// Rewrite replaces the pair's history with entries, re-bucketing each one
	// by its age relative to asOf. Buckets are relative age, not absolute
	// time, so every rewrite recomputes placement.
	Rewrite(ctx context.Context, coin, exchange string, entries []HistoryEntry, asOf time.Time) error
}

// SubscriberStore persists per-chat alert settings. The detection engine only
// reads; the mutators exist for the external settings surface.
type SubscriberStore interface {
	GetByChatID(ctx context.Context, chatID string) (Subscriber, error)
	ListEnabled(ctx context.Context) ([]Subscriber, error)
	Upsert(ctx context.Context, sub Subscriber) error
	SetThreshold(ctx context.Context, chatID string, threshold float64) error
	SetInterval(ctx context.Context, chatID string, interval int) error
	SetNotifications(ctx context.Context, chatID string, enabled bool) error
	AddCoin(ctx context.Context, chatID, coin string) error
	RemoveCoin(ctx context.Context, chatID, coin string) error
	AddExchange(ctx context.Context, chatID, exchange string) error
	RemoveExchange(ctx context.Context, chatID, exchange string) error
}

// AlertStore persists emitted alerts for audit and the ops API.
type AlertStore interface {
	Insert(ctx context.Context, alert Alert) error
	ListRecent(ctx context.Context, limit int) ([]Alert, error)
}

// BlobWriter uploads an object to blob storage. Used by the retention cleaner
// to archive discarded history entries.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
