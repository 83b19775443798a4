package domain

import "errors"

var (
	// ErrNotFound is returned by stores when the requested key has no record.
	ErrNotFound = errors.New("not found")

	// ErrUnknownExchange is returned when a coin map names an exchange no
	// adapter covers.
	ErrUnknownExchange = errors.New("unknown exchange")
)
