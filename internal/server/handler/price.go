package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PriceHandler serves the live price endpoints.
type PriceHandler struct {
	prices  domain.PriceStore
	coinMap domain.CoinMap
	logger  *slog.Logger
}

// NewPriceHandler creates a PriceHandler reading from the given store.
func NewPriceHandler(prices domain.PriceStore, coinMap domain.CoinMap, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, coinMap: coinMap, logger: logger}
}

// quoteResponse is the wire shape of one exchange quote. Ask/bid are null
// when the last fetch failed.
type quoteResponse struct {
	Ask        *float64  `json:"ask"`
	Bid        *float64  `json:"bid"`
	ObservedAt time.Time `json:"observed_at"`
}

// recordResponse is the wire shape of one coin's record.
type recordResponse struct {
	Coin      string                   `json:"coin"`
	Exchanges map[string]quoteResponse `json:"exchanges"`
}

// ListRecords returns the live record for every tracked coin.
// GET /api/prices
func (h *PriceHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records := make([]recordResponse, 0, len(h.coinMap))
	for _, coin := range h.coinMap.Coins() {
		record, err := h.prices.GetRecord(r.Context(), coin)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			h.logger.WarnContext(r.Context(), "record read failed",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
			continue
		}
		records = append(records, toRecordResponse(record))
	}
	writeJSON(w, http.StatusOK, records)
}

// GetRecord returns one coin's record.
// GET /api/prices/{coin}
func (h *PriceHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	coin := r.PathValue("coin")

	record, err := h.prices.GetRecord(r.Context(), coin)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown coin")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "record read failed",
			slog.String("coin", coin),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "record read failed")
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func toRecordResponse(record domain.PriceRecord) recordResponse {
	out := recordResponse{
		Coin:      record.Coin,
		Exchanges: make(map[string]quoteResponse, len(record.Exchanges)),
	}
	for name, quote := range record.Exchanges {
		out.Exchanges[name] = quoteResponse{
			Ask:        quote.Ask,
			Bid:        quote.Bid,
			ObservedAt: quote.ObservedAt,
		}
	}
	return out
}
