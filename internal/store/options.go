package store

import (
	"log/slog"
	"time"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/middleware"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	middlewares []middleware.Middleware
	composer    *middleware.Composer
	logger      *slog.Logger
	ids         action.IDGenerator

	history    bool
	historyCap int
	now        func() time.Time
}

// WithMiddleware wraps dispatch with mws. mws[0] is outermost. When
// combined with WithComposer, the composed units wrap these.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *config) {
		c.middlewares = append(c.middlewares, mws...)
	}
}

// WithComposer wraps dispatch with the composer's resolved pipeline.
// Composition errors make New fail.
func WithComposer(comp *middleware.Composer) Option {
	return func(c *config) {
		c.composer = comp
	}
}

// WithLogger sets the logger for store diagnostics (subscriber panics,
// aborted dispatches). Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHistory records every committed transition in a time-travel log of
// the given capacity. A non-positive capacity uses history.DefaultCapacity.
func WithHistory(capacity int) Option {
	return func(c *config) {
		c.history = true
		c.historyCap = capacity
	}
}

// WithNow sets the timestamp source for history entries.
func WithNow(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithIDGenerator sets the generator used to stamp actions without an ID.
// Defaults to action.UUIDv7Generator.
func WithIDGenerator(g action.IDGenerator) Option {
	return func(c *config) {
		c.ids = g
	}
}
