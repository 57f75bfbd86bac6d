package wizard

import "errors"

// Sentinel kinds for navigation errors.
var (
	ErrNoSelection    = errors.New("no athlete or category selected")
	ErrUnknownAthlete = errors.New("athlete not in selection")
	ErrClosed         = errors.New("editing session closed")
)
