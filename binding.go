package registry

import (
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Factory constructs an instance for a binding. deps holds the resolved
// instances of the binding's declared dependencies.
type Factory func(deps Dependencies) (any, error)

// Binding associates an interface key with one implementation.
//
// Implementation is either a Factory, which is invoked on construction, or
// any other value, which is returned as the instance itself.
type Binding struct {
	// Key is the interface type the binding satisfies.
	Key reflect.Type

	// Implementation is a Factory or a ready instance.
	Implementation any

	// Lifetime determines instance caching behavior.
	Lifetime Lifetime

	// Scope is the default scope for Scoped bindings.
	Scope Scope

	// Dependencies are the declared dependency keys, in order.
	Dependencies []reflect.Type

	// Default marks the binding as the active default for its key.
	Default bool

	// Registered is when the binding was added.
	Registered time.Time
}

// clone returns a copy that shares nothing mutable with b.
func (b *Binding) clone() Binding {
	out := *b
	out.Dependencies = slices.Clone(b.Dependencies)
	return out
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s (%s, scope=%s, deps=%d)", formatType(b.Key), b.Lifetime, b.Scope, len(b.Dependencies))
}

// construct produces a new instance from the implementation.
func (b *Binding) construct(deps Dependencies) (any, error) {
	switch impl := b.Implementation.(type) {
	case Factory:
		return impl(deps)
	case func(Dependencies) (any, error):
		return impl(deps)
	case func() (any, error):
		return impl()
	default:
		return impl, nil
	}
}

// sameImplementation reports whether a and b are the same implementation.
// Funcs compare by code pointer; other values compare with == when comparable.
func sameImplementation(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	if !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}

// Dependencies gives a factory access to its resolved dependencies.
type Dependencies struct {
	keys      []reflect.Type
	instances []any
	scope     Scope
}

// Scope returns the scope the instance is constructed for. It is
// GlobalScope for Singletons.
func (d Dependencies) Scope() Scope {
	return d.scope
}

// Len returns the number of resolved dependencies.
func (d Dependencies) Len() int {
	return len(d.instances)
}

// At returns the i-th declared dependency.
func (d Dependencies) At(i int) any {
	return d.instances[i]
}

// Lookup returns the instance resolved for key.
func (d Dependencies) Lookup(key reflect.Type) (any, bool) {
	if i := slices.Index(d.keys, key); i >= 0 {
		return d.instances[i], true
	}
	return nil, false
}

// Dep returns the dependency resolved for T.
func Dep[T any](d Dependencies) (T, error) {
	var zero T
	key := reflect.TypeFor[T]()

	v, ok := d.Lookup(key)
	if !ok {
		return zero, UnresolvedDependencyError{Key: key}
	}

	typed, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{Expected: key, Actual: reflect.TypeOf(v), Context: "dependency lookup"}
	}
	return typed, nil
}

// ServiceOption configures a binding passed to RegisterService.
type ServiceOption interface {
	apply(*Binding)
}

type serviceOptionFunc func(*Binding)

func (f serviceOptionFunc) apply(b *Binding) {
	f(b)
}

// WithLifetime sets the binding lifetime. The default is Singleton.
func WithLifetime(l Lifetime) ServiceOption {
	return serviceOptionFunc(func(b *Binding) {
		b.Lifetime = l
	})
}

// InScope sets the scope used for Scoped bindings when the caller resolves
// with an empty scope.
func InScope(s Scope) ServiceOption {
	return serviceOptionFunc(func(b *Binding) {
		b.Scope = s
	})
}

// DependsOn declares dependency keys, resolved in order before construction.
func DependsOn(keys ...reflect.Type) ServiceOption {
	return serviceOptionFunc(func(b *Binding) {
		b.Dependencies = append(b.Dependencies, keys...)
	})
}

// AsDefault marks the binding as the active default for its key, taking
// precedence over earlier registrations.
func AsDefault() ServiceOption {
	return serviceOptionFunc(func(b *Binding) {
		b.Default = true
	})
}
