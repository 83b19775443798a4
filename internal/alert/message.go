package alert

import (
	"fmt"
	"strconv"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// FormatMessage renders an alert as the Markdown message subscribers receive.
func FormatMessage(alert domain.Alert) string {
	spread := strconv.FormatFloat(alert.SpreadPercent, 'f', -1, 64)
	return fmt.Sprintf("#%s\nBid is higher on *%s*\nthan ask on *%s* by *%s%%*",
		alert.Coin, alert.HigherExchange, alert.LowerExchange, spread)
}
