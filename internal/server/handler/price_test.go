package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMux(h *PriceHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices", h.ListRecords)
	mux.HandleFunc("GET /api/prices/{coin}", h.GetRecord)
	return mux
}

func TestGetRecord(t *testing.T) {
	prices := memory.NewPriceStore()
	require.NoError(t, prices.Upsert(context.Background(), "BTC/USD", "gemini",
		domain.Float(101.5), domain.Float(100.5), time.Now().UTC()))
	require.NoError(t, prices.Upsert(context.Background(), "BTC/USD", "bitstamp",
		domain.Float(99), nil, time.Now().UTC()))

	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd", "bitstamp": "btcusd"}}
	mux := testMux(NewPriceHandler(prices, coinMap, discardLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices/BTC%2FUSD", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var got recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "BTC/USD", got.Coin)
	require.Len(t, got.Exchanges, 2)
	assert.Equal(t, 101.5, *got.Exchanges["gemini"].Ask)

	// Absent sides serialize as null, not zero.
	assert.Nil(t, got.Exchanges["bitstamp"].Bid)
}

func TestGetRecordUnknownCoin(t *testing.T) {
	coinMap := domain.CoinMap{"BTC/USD": {"gemini": "btcusd"}}
	mux := testMux(NewPriceHandler(memory.NewPriceStore(), coinMap, discardLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices/XMR%2FUSD", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"unknown coin"}`, rec.Body.String())
}

func TestListRecords(t *testing.T) {
	prices := memory.NewPriceStore()
	require.NoError(t, prices.Upsert(context.Background(), "BTC/USD", "gemini",
		domain.Float(101.5), domain.Float(100.5), time.Now().UTC()))

	// ETH/USD is tracked but has no record yet; it is omitted, not an error.
	coinMap := domain.CoinMap{
		"BTC/USD": {"gemini": "btcusd"},
		"ETH/USD": {"gemini": "ethusd"},
	}
	mux := testMux(NewPriceHandler(prices, coinMap, discardLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "BTC/USD", got[0].Coin)
}
