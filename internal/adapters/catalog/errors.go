package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrFetch           = errors.New("catalog fetch failed")
	ErrUnknownTemplate = errors.New("unknown scorecard template")
	ErrUnknownCategory = errors.New("unknown category")
)
