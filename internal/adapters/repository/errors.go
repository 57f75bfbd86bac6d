package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("evaluation not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownDriver  = errors.New("unknown store driver")
)
