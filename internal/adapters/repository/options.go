package repository

import (
	"time"

	"github.com/okian/scorecard/pkg/logger"
)

type options struct {
	logger logger.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{logger: logger.Nop(), now: time.Now}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
