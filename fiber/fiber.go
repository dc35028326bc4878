// Package fiber provides request scopes for the Fiber web framework.
//
// Fiber handlers do not run on net/http requests, so the scope and the
// registry are kept in fiber.Ctx.Locals as well as in the UserContext.
//
// Example usage:
//
//	services := registry.NewServiceRegistry()
//
//	app := fiber.New()
//	app.Use(registryfiber.ScopeMiddleware(services))
//
//	app.Post("/login", registryfiber.Handle(AuthController.Login))
//	app.Get("/users/:id", registryfiber.Handle(UserController.GetByID))
package fiber

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/junioryono/registry"
)

const (
	scopeKey    = "registry_scope"
	registryKey = "registry_services"
)

// ErrNoScope is reported when Handle runs outside ScopeMiddleware.
var ErrNoScope = errors.New("no request scope in fiber locals")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware hook fails.
	ErrorHandler func(*fiber.Ctx, error) error

	// EndErrorHandler is called when ending the scope fails.
	EndErrorHandler func(error)

	// ScopeFunc picks the scope for a request. The default is a new random scope.
	ScopeFunc func(*fiber.Ctx) registry.Scope

	// Middlewares are functions that run after the scope is attached.
	Middlewares []func(registry.Scope, *fiber.Ctx) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware hook failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithEndErrorHandler sets the error handler for scope end failures.
func WithEndErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.EndErrorHandler = h
	}
}

// WithScopeFunc sets how a request's scope is chosen.
func WithScopeFunc(fn func(*fiber.Ctx) registry.Scope) Option {
	return func(c *Config) {
		c.ScopeFunc = fn
	}
}

// WithMiddleware adds a function that runs after the scope is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(registry.Scope, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
		EndErrorHandler: func(err error) {
			log.Error().Err(err).Msg("failed to end request scope")
		},
		ScopeFunc: func(*fiber.Ctx) registry.Scope {
			return registry.NewScope()
		},
	}
}

// ScopeMiddleware creates a Fiber middleware that opens a scope for each
// request. The scope is ended after the rest of the handler chain returns.
func ScopeMiddleware(services *registry.ServiceRegistry, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		scope := cfg.ScopeFunc(c)
		parent := c.UserContext()

		defer func() {
			if err := services.EndScopeContext(parent, scope); err != nil {
				cfg.EndErrorHandler(err)
			}
		}()

		ctx := registry.ContextWithRegistry(parent, services)
		c.SetUserContext(registry.ContextWithScope(ctx, scope))
		c.Locals(scopeKey, scope)
		c.Locals(registryKey, services)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// FromContext returns the request scope and registry stored by ScopeMiddleware.
func FromContext(c *fiber.Ctx) (registry.Scope, *registry.ServiceRegistry, bool) {
	scope, ok := c.Locals(scopeKey).(registry.Scope)
	if !ok {
		return "", nil, false
	}
	services, ok := c.Locals(registryKey).(*registry.ServiceRegistry)
	if !ok {
		return "", nil, false
	}
	return scope, services, true
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ScopeErrorHandler is called when the request has no scope.
	ScopeErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing request scope.
func WithScopeErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			log.Error().Interface("panic", v).Str("path", c.Path()).Msg("panic in handler")
			return internalError(c)
		},
		ScopeErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().Err(err).Str("path", c.Path()).Msg("missing request scope")
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().Err(err).Str("path", c.Path()).Msg("failed to resolve controller")
			return internalError(c)
		},
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request scope stored in fiber.Ctx.Locals.
//
// Example:
//
//	type UserController interface {
//	    GetByID(*fiber.Ctx) error
//	}
//
//	app.Get("/users/:id", registryfiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, services, ok := FromContext(c)
		if !ok {
			return cfg.ScopeErrorHandler(c, ErrNoScope)
		}

		controller, resolveErr := registry.Resolve[T](services, scope)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller.Value(), c)
	}
}
