package domain

import "time"

// Subscriber is one chat's alert configuration. The detection engine treats it
// as read-only input; the settings CRUD surface lives outside this process.
type Subscriber struct {
	ChatID        string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Coins         []string
	Exchanges     []string
	Threshold     float64 // minimum spread percent to alert on, > 0
	Interval      int     // seconds between detection runs, > 0
	Notifications bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
