// Package chi provides request scopes for the Chi router and any other
// net/http handler chain.
//
// ScopeMiddleware opens a fresh scope for each request, stores it and the
// registry in the request context, and ends the scope when the handler
// returns. Handle resolves a controller from that scope.
//
// Example usage:
//
//	services := registry.NewServiceRegistry()
//
//	r := chi.NewRouter()
//	r.Use(registrychi.ScopeMiddleware(services))
//
//	r.Post("/login", registrychi.Handle(AuthController.Login))
//	r.Get("/users/{id}", registrychi.Handle(UserController.GetByID))
package chi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/junioryono/registry"
)

// ErrNoRegistry is reported when Handle runs outside ScopeMiddleware.
var ErrNoRegistry = errors.New("no registry in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware hook fails.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// EndErrorHandler is called when ending the scope fails.
	EndErrorHandler func(error)

	// ScopeFunc picks the scope for a request. The default is a new random scope.
	ScopeFunc func(*http.Request) registry.Scope

	// Middlewares are functions that run after the scope is attached.
	Middlewares []func(registry.Scope, *http.Request) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware hook failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
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

// WithScopeFunc sets how a request's scope is chosen, for example from a
// request ID header. The function must return a scope unique to the request.
func WithScopeFunc(fn func(*http.Request) registry.Scope) Option {
	return func(c *Config) {
		c.ScopeFunc = fn
	}
}

// WithMiddleware adds a function that runs after the scope is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(registry.Scope, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		EndErrorHandler: func(err error) {
			log.Error().Err(err).Msg("failed to end request scope")
		},
		ScopeFunc: func(*http.Request) registry.Scope {
			return registry.NewScope()
		},
	}
}

// ScopeMiddleware creates a middleware that opens a scope for each request.
// The scope is ended, and its disposable instances closed, when the request
// completes.
func ScopeMiddleware(services *registry.ServiceRegistry, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := cfg.ScopeFunc(r)

			defer func() {
				if err := services.EndScopeContext(r.Context(), scope); err != nil {
					cfg.EndErrorHandler(err)
				}
			}()

			ctx := registry.ContextWithRegistry(r.Context(), services)
			ctx = registry.ContextWithScope(ctx, scope)
			r = r.WithContext(ctx)

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
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
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("panic in handler")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to resolve controller")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request scope attached by ScopeMiddleware.
//
// Example:
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	r.Get("/users/{id}", registrychi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		services, ok := registry.RegistryFromContext(r.Context())
		if !ok {
			cfg.ResolutionErrorHandler(w, r, ErrNoRegistry)
			return
		}

		controller, err := registry.ResolveFromContext[T](r.Context(), services)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller.Value(), w, r)
	}
}
