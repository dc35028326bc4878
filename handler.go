package registry

import (
	"fmt"
	"reflect"
)

var _ Registry[string, reflect.Type] = (*HandlerRegistry)(nil)

// HandlerRegistry maps discriminator strings (for example a protocol or
// format name) to handler implementation types.
//
// It only records which type answers which discriminator; creating
// handler instances is up to the caller.
type HandlerRegistry struct {
	*Store[string, reflect.Type]
}

// NewHandlerRegistry creates an empty HandlerRegistry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{Store: NewStore[string, reflect.Type]()}
}

// Register binds a handler type to a discriminator.
func (r *HandlerRegistry) Register(discriminator string, handler reflect.Type) error {
	if handler == nil {
		return InvalidBindingError{Cause: fmt.Errorf("handler type for %q: %w", discriminator, ErrNilKey)}
	}
	return r.Store.Register(discriminator, handler)
}

// Overwrite binds handler to discriminator, replacing any existing binding.
// A nil handler type is ignored and reported as not replaced.
func (r *HandlerRegistry) Overwrite(discriminator string, handler reflect.Type) bool {
	if handler == nil {
		return false
	}
	return r.Store.Overwrite(discriminator, handler)
}

// ListProtocols is the older name for Keys and always returns the same result.
func (r *HandlerRegistry) ListProtocols() []string {
	return r.Keys()
}

// RegisterHandler binds the type T to discriminator.
func RegisterHandler[T any](r *HandlerRegistry, discriminator string) error {
	return r.Register(discriminator, reflect.TypeFor[T]())
}

// NewHandler allocates a new handler for discriminator.
// Pointer handler types get a freshly allocated element; other types get their zero value.
func (r *HandlerRegistry) NewHandler(discriminator string) (any, error) {
	t, err := r.Get(discriminator)
	if err != nil {
		return nil, err
	}

	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return reflect.New(t).Elem().Interface(), nil
}
