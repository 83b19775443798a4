package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(domain.Alert{
		Coin:           "BTC/USD",
		HigherExchange: "gemini",
		LowerExchange:  "bitstamp",
		SpreadPercent:  10,
	})
	assert.Equal(t, "#BTC/USD\nBid is higher on *gemini*\nthan ask on *bitstamp* by *10%*", msg)
}

func TestFormatMessageFractionalSpread(t *testing.T) {
	msg := FormatMessage(domain.Alert{
		Coin:           "ETH/USD",
		HigherExchange: "kraken",
		LowerExchange:  "bitfinex",
		SpreadPercent:  2.75,
	})
	// No trailing zeros on the spread.
	assert.Equal(t, "#ETH/USD\nBid is higher on *kraken*\nthan ask on *bitfinex* by *2.75%*", msg)
}
