package crawler

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/store/memory"
)

// captureWriter records every Put for assertions.
type captureWriter struct {
	paths    []string
	payloads []string
	types    []string
	err      error
}

func (c *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if c.err != nil {
		return c.err
	}
	body, _ := io.ReadAll(data)
	c.paths = append(c.paths, path)
	c.payloads = append(c.payloads, string(body))
	c.types = append(c.types, contentType)
	return nil
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	histories := memory.NewHistoryStore()
	now := time.Now().UTC()

	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd"}}
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-30*time.Hour), domain.Float(1), domain.Float(1)))
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-time.Hour), domain.Float(2), domain.Float(2)))

	c := NewCleaner(histories, coinMap, 24*time.Hour, time.Hour, nil, "history", discardLogger())
	c.sweep(ctx)

	entries, err := histories.Read(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2.0, *entries[0].Ask)
}

func TestSweepArchivesDiscardedEntries(t *testing.T) {
	ctx := context.Background()
	histories := memory.NewHistoryStore()
	now := time.Now().UTC()

	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd"}}
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-30*time.Hour), domain.Float(1), domain.Float(1)))
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-time.Hour), domain.Float(2), domain.Float(2)))

	archive := &captureWriter{}
	c := NewCleaner(histories, coinMap, 24*time.Hour, time.Hour, archive, "history", discardLogger())
	c.sweep(ctx)

	require.Len(t, archive.paths, 1)
	assert.True(t, strings.HasPrefix(archive.paths[0], "history/BTC/USD/gemini/"))
	assert.True(t, strings.HasSuffix(archive.paths[0], ".jsonl"))
	assert.Equal(t, "application/x-ndjson", archive.types[0])

	// One JSONL line, holding the discarded entry only.
	lines := strings.Split(strings.TrimSpace(archive.payloads[0]), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"ask":1`)
}

func TestSweepNothingExpiredDoesNotArchive(t *testing.T) {
	ctx := context.Background()
	histories := memory.NewHistoryStore()
	now := time.Now().UTC()

	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd"}}
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-time.Hour), domain.Float(2), domain.Float(2)))

	archive := &captureWriter{}
	c := NewCleaner(histories, coinMap, 24*time.Hour, time.Hour, archive, "history", discardLogger())
	c.sweep(ctx)

	assert.Empty(t, archive.paths)

	entries, err := histories.Read(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSweepArchiveFailureStillRewrites(t *testing.T) {
	ctx := context.Background()
	histories := memory.NewHistoryStore()
	now := time.Now().UTC()

	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd"}}
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		now.Add(-30*time.Hour), domain.Float(1), domain.Float(1)))

	archive := &captureWriter{err: io.ErrClosedPipe}
	c := NewCleaner(histories, coinMap, 24*time.Hour, time.Hour, archive, "history", discardLogger())
	c.sweep(ctx)

	entries, err := histories.Read(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSweepSkipsPairsWithoutHistory(t *testing.T) {
	ctx := context.Background()
	histories := memory.NewHistoryStore()

	coinMap := domain.CoinMap{
		"BTC/USD": {"gemini": "btcusd"},
		"ETH/USD": {"gemini": "ethusd"},
	}
	require.NoError(t, histories.Append(ctx, "BTC/USD", "gemini",
		time.Now().UTC(), domain.Float(1), domain.Float(1)))

	c := NewCleaner(histories, coinMap, 24*time.Hour, time.Hour, nil, "history", discardLogger())
	c.sweep(ctx)

	entries, err := histories.Read(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCleanerRunStopsOnCancel(t *testing.T) {
	histories := memory.NewHistoryStore()
	c := NewCleaner(histories, domain.CoinMap{}, 24*time.Hour, 10*time.Millisecond, nil, "history", discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancellation")
	}
}
