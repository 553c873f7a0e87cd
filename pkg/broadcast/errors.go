package broadcast

import "errors"

var (
	// ErrClosed is returned when publishing or subscribing on a broadcaster
	// that has been shut down.
	ErrClosed = errors.New("broadcast: broadcaster is closed")
)
