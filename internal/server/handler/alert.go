package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// AlertHandler serves the alert audit endpoints.
type AlertHandler struct {
	alerts domain.AlertStore
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler reading from the given store.
func NewAlertHandler(alerts domain.AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

// ListRecent returns the most recently emitted alerts.
// GET /api/alerts/recent?limit=N
func (h *AlertHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "alert list failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "alert list failed")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}
