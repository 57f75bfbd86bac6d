package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrNotFinite  = errors.New("rating is not a finite number")
	ErrOutOfRange = errors.New("rating out of range")
)
