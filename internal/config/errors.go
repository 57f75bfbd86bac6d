package config

import "errors"

// Sentinel error kinds for configuration loading.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("cannot load configuration")
)
