// Package gin provides request scopes for the Gin web framework.
//
// Example usage:
//
//	services := registry.NewServiceRegistry()
//
//	g := gin.New()
//	g.Use(registrygin.ScopeMiddleware(services))
//
//	g.POST("/login", registrygin.Handle(AuthController.Login))
//	g.GET("/users/:id", registrygin.Handle(UserController.GetByID))
package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/junioryono/registry"
)

// ScopeKey is the gin.Context key holding the request scope.
const ScopeKey = "registry.scope"

// ErrNoRegistry is reported when Handle runs outside ScopeMiddleware.
var ErrNoRegistry = errors.New("no registry in request context")

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware hook fails.
	ErrorHandler func(*gin.Context, error)

	// EndErrorHandler is called when ending the scope fails.
	EndErrorHandler func(error)

	// ScopeFunc picks the scope for a request. The default is a new random scope.
	ScopeFunc func(*gin.Context) registry.Scope

	// Middlewares are functions that run after the scope is attached.
	// They can be used to initialize request context, set user claims, etc.
	Middlewares []func(registry.Scope, *gin.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware hook failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
func WithScopeFunc(fn func(*gin.Context) registry.Scope) Option {
	return func(c *Config) {
		c.ScopeFunc = fn
	}
}

// WithMiddleware adds a function that runs after the scope is attached.
//
// Example:
//
//	registrygin.ScopeMiddleware(services,
//	    registrygin.WithMiddleware(func(scope registry.Scope, c *gin.Context) error {
//	        reqCtx, err := registry.Resolve[*RequestContext](services, scope)
//	        if err != nil {
//	            return err
//	        }
//	        reqCtx.Value().SetUser(c.GetHeader("X-User"))
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(registry.Scope, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		EndErrorHandler: func(err error) {
			log.Error().Err(err).Msg("failed to end request scope")
		},
		ScopeFunc: func(*gin.Context) registry.Scope {
			return registry.NewScope()
		},
	}
}

// ScopeMiddleware creates a gin.HandlerFunc that opens a scope for each
// request. The scope is stored under ScopeKey and in the request context,
// and is ended when the request completes.
func ScopeMiddleware(services *registry.ServiceRegistry, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		scope := cfg.ScopeFunc(c)

		defer func() {
			if err := services.EndScopeContext(c.Request.Context(), scope); err != nil {
				cfg.EndErrorHandler(err)
			}
		}()

		ctx := registry.ContextWithRegistry(c.Request.Context(), services)
		c.Request = c.Request.WithContext(registry.ContextWithScope(ctx, scope))
		c.Set(ScopeKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// FromContext returns the request scope stored by ScopeMiddleware.
func FromContext(c *gin.Context) (registry.Scope, bool) {
	v, ok := c.Get(ScopeKey)
	if !ok {
		return "", false
	}
	scope, ok := v.(registry.Scope)
	return scope, ok
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, v any) {
			log.Error().Interface("panic", v).Str("path", c.FullPath()).Msg("panic in handler")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			log.Error().Err(err).Str("path", c.FullPath()).Msg("failed to resolve controller")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request scope attached by ScopeMiddleware.
//
// The method signature should be: func(T, *gin.Context)
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(c, v)
				}
			}()
		}

		services, ok := registry.RegistryFromContext(c.Request.Context())
		if !ok {
			cfg.ResolutionErrorHandler(c, ErrNoRegistry)
			return
		}

		controller, err := registry.ResolveFromContext[T](c.Request.Context(), services)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller.Value(), c)
	}
}
