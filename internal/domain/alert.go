package domain

import "time"

// Alert is one detected arbitrage opportunity: for Coin, the bid on
// HigherExchange exceeds the ask on LowerExchange by SpreadPercent. Alerts are
// produced per detection run and handed straight to the notifier; the alert
// store keeps them only for audit.
type Alert struct {
	ID             string
	ChatID         string
	Coin           string
	HigherExchange string
	LowerExchange  string
	SpreadPercent  float64
	DetectedAt     time.Time
}
