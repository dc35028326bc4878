package registry

import (
	"context"

	"github.com/google/uuid"
)

// Scope identifies a caller-defined lifetime boundary, typically one request.
// The owner of a scope must call ServiceRegistry.EndScope to release its instances.
type Scope string

// GlobalScope is the scope used by Get and by bindings that declare none.
const GlobalScope Scope = "global"

// NewScope returns a fresh, unique scope identifier.
func NewScope() Scope {
	return Scope(uuid.NewString())
}

func (s Scope) String() string {
	return string(s)
}

type scopeContextKey struct{}

// ContextWithScope returns a copy of ctx carrying scope.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext returns the scope stored in ctx by ContextWithScope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(scopeContextKey{}).(Scope)
	return s, ok && s != ""
}

// ResolveFromContext resolves T in the scope carried by ctx, or in
// GlobalScope when ctx carries none.
func ResolveFromContext[T any](ctx context.Context, r *ServiceRegistry) (Container[T], error) {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		scope = GlobalScope
	}
	return Resolve[T](r, scope)
}

type registryContextKey struct{}

// ContextWithRegistry returns a copy of ctx carrying r.
func ContextWithRegistry(ctx context.Context, r *ServiceRegistry) context.Context {
	return context.WithValue(ctx, registryContextKey{}, r)
}

// RegistryFromContext returns the registry stored in ctx by ContextWithRegistry.
func RegistryFromContext(ctx context.Context) (*ServiceRegistry, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(registryContextKey{}).(*ServiceRegistry)
	return r, ok && r != nil
}
