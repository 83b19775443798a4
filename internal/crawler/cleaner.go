package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// largeArchiveBytes is the payload size above which the cleaner prefers a
// multipart upload when the blob writer supports one.
const largeArchiveBytes = 8 << 20

// multipartWriter is the optional upgrade a blob writer can offer for large
// payloads.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Cleaner periodically sweeps every pair's history: entries older than the
// retention window are dropped (optionally archived to blob storage first)
// and the remainder is re-bucketed against the sweep time. Each pair is
// processed independently; one pair failing never stops the sweep or the
// cleaner.
type Cleaner struct {
	histories     domain.HistoryStore
	coinMap       domain.CoinMap
	retention     time.Duration
	sweepInterval time.Duration
	archive       domain.BlobWriter // nil disables archiving
	archivePrefix string
	logger        *slog.Logger
}

// NewCleaner creates a Cleaner. archive may be nil, in which case discarded
// entries are simply dropped.
func NewCleaner(
	histories domain.HistoryStore,
	coinMap domain.CoinMap,
	retention, sweepInterval time.Duration,
	archive domain.BlobWriter,
	archivePrefix string,
	logger *slog.Logger,
) *Cleaner {
	return &Cleaner{
		histories:     histories,
		coinMap:       coinMap,
		retention:     retention,
		sweepInterval: sweepInterval,
		archive:       archive,
		archivePrefix: archivePrefix,
		logger:        logger.With(slog.String("component", "cleaner")),
	}
}

// Run sweeps on a fixed ticker until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep processes every pair once.
func (c *Cleaner) sweep(ctx context.Context) {
	now := time.Now().UTC()

	for _, pair := range c.coinMap.Pairs() {
		logger := c.logger.With(
			slog.String("coin", pair.Coin),
			slog.String("exchange", pair.Exchange),
		)

		entries, err := c.histories.Read(ctx, pair.Coin, pair.Exchange)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			logger.WarnContext(ctx, "history read failed, skipping pair",
				slog.String("error", err.Error()))
			continue
		}

		var retained, discarded []domain.HistoryEntry
		for _, entry := range entries {
			if now.Sub(entry.Time) < c.retention {
				retained = append(retained, entry)
			} else {
				discarded = append(discarded, entry)
			}
		}

		if len(discarded) > 0 && c.archive != nil {
			if err := c.archiveEntries(ctx, pair, discarded, now); err != nil {
				logger.WarnContext(ctx, "history archive failed, entries dropped unarchived",
					slog.Int("entries", len(discarded)),
					slog.String("error", err.Error()))
			}
		}

		// Buckets hold relative age, so even a sweep that discards nothing
		// must rewrite to shift entries into older buckets.
		if err := c.histories.Rewrite(ctx, pair.Coin, pair.Exchange, retained, now); err != nil {
			logger.WarnContext(ctx, "history rewrite failed, skipping pair",
				slog.String("error", err.Error()))
			continue
		}
	}
}

// archiveEntries uploads the discarded entries as one JSONL object keyed by
// pair and sweep time.
func (c *Cleaner) archiveEntries(ctx context.Context, pair domain.Pair, entries []domain.HistoryEntry, asOf time.Time) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("crawler: encode archive entry: %w", err)
		}
	}

	path := fmt.Sprintf("%s/%s/%s/%s.jsonl",
		c.archivePrefix, pair.Coin, pair.Exchange, asOf.Format("2006-01-02T15-04-05Z"))

	if mp, ok := c.archive.(multipartWriter); ok && buf.Len() > largeArchiveBytes {
		return mp.PutMultipart(ctx, path, &buf, largeArchiveBytes)
	}
	return c.archive.Put(ctx, path, &buf, "application/x-ndjson")
}
