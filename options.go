package registry

import (
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a ServiceRegistry.
type Option interface {
	apply(*options)
}

// options holds ServiceRegistry configuration.
type options struct {
	logger zerolog.Logger
	clock  func() time.Time
	hooks  []func(ResolveEvent)
	strict bool
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func defaultOptions() *options {
	return &options{
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
}

// ResolveEvent describes one completed top-level resolution.
type ResolveEvent struct {
	Key      reflect.Type
	Scope    Scope
	Lifetime Lifetime
	Cached   bool
	Duration time.Duration
	Err      error
}

// WithLogger sets the logger used for registration and resolution events.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// WithClock sets the time source used for resolution timestamps.
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(opts *options) {
		if clock != nil {
			opts.clock = clock
		}
	})
}

// WithResolveHook registers fn to be called after every ResolveService call,
// successful or not. Hooks run synchronously on the resolving goroutine.
func WithResolveHook(fn func(ResolveEvent)) Option {
	return optionFunc(func(opts *options) {
		if fn != nil {
			opts.hooks = append(opts.hooks, fn)
		}
	})
}

// WithStrictLifetimes makes ResolveService reject a Singleton whose
// dependencies reach a Scoped binding, directly or through Transient ones,
// with a LifetimeConflictError. Without it such graphs resolve and the
// Singleton keeps the Scoped instance of the scope it was first built in.
// Validate reports the conflict either way.
func WithStrictLifetimes() Option {
	return optionFunc(func(opts *options) {
		opts.strict = true
	})
}
