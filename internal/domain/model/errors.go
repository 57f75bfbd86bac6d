package model

import "errors"

// Sentinel kinds for catalog lookups.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownSubskill = errors.New("unknown subskill")
)
