package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestPriceStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()
	ts := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", domain.Float(101.5), domain.Float(100.5), ts))

	q, err := s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	require.NotNil(t, q.Ask)
	require.NotNil(t, q.Bid)
	assert.Equal(t, 101.5, *q.Ask)
	assert.Equal(t, 100.5, *q.Bid)
	assert.Equal(t, ts, q.ObservedAt)
}

func TestPriceStoreGetUnknown(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()

	_, err := s.Get(ctx, "BTC/USD", "gemini")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.GetRecord(ctx, "BTC/USD")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceStoreAbsentNeverClearsPresent(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()
	ts1 := time.Now().UTC()
	ts2 := ts1.Add(time.Second)

	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", domain.Float(101.5), domain.Float(100.5), ts1))

	// A failed fetch upserts nil sides; the stored values must survive.
	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", nil, nil, ts2))

	q, err := s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	require.NotNil(t, q.Ask)
	require.NotNil(t, q.Bid)
	assert.Equal(t, 101.5, *q.Ask)
	assert.Equal(t, 100.5, *q.Bid)
	assert.Equal(t, ts2, q.ObservedAt)
}

func TestPriceStorePartialUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()
	ts := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", domain.Float(101.5), nil, ts))

	q, err := s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	require.NotNil(t, q.Ask)
	assert.Nil(t, q.Bid)
	assert.False(t, q.Complete())

	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", nil, domain.Float(100.5), ts))
	q, err = s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.True(t, q.Complete())
}

func TestPriceStoreEnsureExists(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()

	require.NoError(t, s.EnsureExists(ctx, "BTC/USD", "gemini"))
	require.NoError(t, s.EnsureExists(ctx, "BTC/USD", "gemini"))

	q, err := s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.Nil(t, q.Ask)
	assert.Nil(t, q.Bid)

	record, err := s.GetRecord(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.Contains(t, record.Exchanges, "gemini")
}

func TestPriceStoreGetRecordIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()
	ts := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "BTC/USD", "gemini", domain.Float(101.5), domain.Float(100.5), ts))

	record, err := s.GetRecord(ctx, "BTC/USD")
	require.NoError(t, err)
	*record.Exchanges["gemini"].Ask = 0

	q, err := s.Get(ctx, "BTC/USD", "gemini")
	require.NoError(t, err)
	assert.Equal(t, 101.5, *q.Ask)
}

func TestPriceStoreConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewPriceStore()
	ts := time.Now().UTC()

	coins := []string{"BTC/USD", "ETH/USD", "LTC/USD"}
	exchanges := []string{"gemini", "bitstamp", "kraken"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, coin := range coins {
			for _, exchangeName := range exchanges {
				wg.Add(1)
				go func(coin, exchangeName string, i int) {
					defer wg.Done()
					v := float64(i)
					_ = s.Upsert(ctx, coin, exchangeName, &v, &v, ts)
					_, _ = s.GetRecord(ctx, coin)
				}(coin, exchangeName, i)
			}
		}
	}
	wg.Wait()

	for _, coin := range coins {
		record, err := s.GetRecord(ctx, coin)
		require.NoError(t, err)
		assert.Len(t, record.Exchanges, len(exchanges))
		for _, q := range record.Exchanges {
			assert.True(t, q.Complete())
		}
	}
}
