// Package echo provides request scopes for the Echo web framework.
//
// Example usage:
//
//	services := registry.NewServiceRegistry()
//
//	e := echo.New()
//	e.Use(registryecho.ScopeMiddleware(services))
//
//	e.POST("/login", registryecho.Handle(AuthController.Login))
//	e.GET("/users/:id", registryecho.Handle(UserController.GetByID))
package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/junioryono/registry"
)

// ErrNoRegistry is reported when Handle runs outside ScopeMiddleware.
var ErrNoRegistry = errors.New("no registry in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware hook fails.
	// The returned error is passed to Echo's error handling.
	ErrorHandler func(echo.Context, error) error

	// EndErrorHandler is called when ending the scope fails.
	EndErrorHandler func(error)

	// ScopeFunc picks the scope for a request. The default is a new random scope.
	ScopeFunc func(echo.Context) registry.Scope

	// Middlewares are functions that run after the scope is attached.
	Middlewares []func(registry.Scope, echo.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware hook failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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
func WithScopeFunc(fn func(echo.Context) registry.Scope) Option {
	return func(c *Config) {
		c.ScopeFunc = fn
	}
}

// WithMiddleware adds a function that runs after the scope is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(registry.Scope, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		EndErrorHandler: func(err error) {
			log.Error().Err(err).Msg("failed to end request scope")
		},
		ScopeFunc: func(echo.Context) registry.Scope {
			return registry.NewScope()
		},
	}
}

// ScopeMiddleware creates an Echo middleware that opens a scope for each
// request. The scope is attached to the request context and ended when the
// request completes.
func ScopeMiddleware(services *registry.ServiceRegistry, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := cfg.ScopeFunc(c)
			req := c.Request()

			defer func() {
				if err := services.EndScopeContext(req.Context(), scope); err != nil {
					cfg.EndErrorHandler(err)
				}
			}()

			ctx := registry.ContextWithRegistry(req.Context(), services)
			c.SetRequest(req.WithContext(registry.ContextWithScope(ctx, scope)))

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			log.Error().Interface("panic", v).Str("path", c.Path()).Msg("panic in handler")
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			log.Error().Err(err).Str("path", c.Path()).Msg("failed to resolve controller")
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request scope attached by ScopeMiddleware.
//
// Example:
//
//	type UserController interface {
//	    GetByID(echo.Context) error
//	}
//
//	e.GET("/users/:id", registryecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		ctx := c.Request().Context()
		services, ok := registry.RegistryFromContext(ctx)
		if !ok {
			return cfg.ResolutionErrorHandler(c, ErrNoRegistry)
		}

		controller, resolveErr := registry.ResolveFromContext[T](ctx, services)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller.Value(), c)
	}
}
