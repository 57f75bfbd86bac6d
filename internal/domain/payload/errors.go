package payload

import "errors"

// Sentinel kinds for payload errors.
var (
	ErrEmptyResult     = errors.New("nothing to persist")
	ErrMissingOrg      = errors.New("missing org id")
	ErrMissingCoach    = errors.New("missing coach id")
	ErrMissingTemplate = errors.New("missing scorecard template id")
)
