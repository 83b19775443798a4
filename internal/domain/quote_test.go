package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteComplete(t *testing.T) {
	assert.False(t, Quote{}.Complete())
	assert.False(t, Quote{Ask: Float(1)}.Complete())
	assert.False(t, Quote{Bid: Float(1)}.Complete())
	assert.True(t, Quote{Ask: Float(1), Bid: Float(1)}.Complete())
}

func TestBucketFor(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"fresh", 0, 0},
		{"thirty minutes", 30 * time.Minute, 1},
		{"exactly one hour", time.Hour, 1},
		{"just over an hour", time.Hour + time.Second, 2},
		{"ninety minutes", 90 * time.Minute, 2},
		{"one day", 24 * time.Hour, HistoryBuckets - 1},
		{"older than the window", 48 * time.Hour, HistoryBuckets - 1},
		{"future entry clamps to zero", -time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketFor(asOf.Add(-tt.age), asOf))
		})
	}
}

func TestCoinMapLookups(t *testing.T) {
	m := CoinMap{
		"BTC/USD": {"gemini": "btcusd", "kraken": "XBTUSD"},
		"ETH/USD": {"gemini": "ethusd"},
	}

	native, ok := m.Native("BTC/USD", "kraken")
	assert.True(t, ok)
	assert.Equal(t, "XBTUSD", native)

	_, ok = m.Native("BTC/USD", "bitstamp")
	assert.False(t, ok)
	_, ok = m.Native("XMR/USD", "gemini")
	assert.False(t, ok)

	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, m.Coins())
	assert.Equal(t, []string{"gemini", "kraken"}, m.Exchanges())
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, m.CoinsOn("gemini"))
	assert.Equal(t, []string{"BTC/USD"}, m.CoinsOn("kraken"))
}

func TestCoinMapPairsDeterministic(t *testing.T) {
	m := CoinMap{
		"BTC/USD": {"kraken": "XBTUSD", "gemini": "btcusd"},
		"ETH/USD": {"gemini": "ethusd"},
	}

	want := []Pair{
		{Coin: "BTC/USD", Exchange: "gemini"},
		{Coin: "BTC/USD", Exchange: "kraken"},
		{Coin: "ETH/USD", Exchange: "gemini"},
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, m.Pairs())
	}
}
