package registry

import (
	"reflect"
	"slices"
)

// Decorator wraps or replaces a freshly constructed instance. It runs once
// per construction, before the instance is cached, so a cached Singleton or
// Scoped instance is decorated exactly once.
type Decorator func(instance any) (any, error)

// Decorate adds a decorator for key. Decorators apply to every binding of
// key in registration order, the first registered being innermost. They
// survive Unregister, so a key registered again is decorated the same way.
//
// Instances already cached are not decorated retroactively.
func (r *ServiceRegistry) Decorate(key reflect.Type, d Decorator) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}
	if key == nil {
		return InvalidBindingError{Cause: ErrNilKey}
	}
	if d == nil {
		return InvalidBindingError{Key: key, Cause: ErrNilImplementation}
	}

	r.mu.Lock()
	if r.decorators == nil {
		r.decorators = make(map[reflect.Type][]Decorator)
	}
	r.decorators[key] = append(r.decorators[key], d)
	count := len(r.decorators[key])
	r.mu.Unlock()

	r.opts.logger.Debug().
		Str("service", key.String()).
		Int("decorators", count).
		Msg("decorator added")

	return nil
}

// DecorateFunc adds a typed decorator for the interface type T.
func DecorateFunc[T any](r *ServiceRegistry, fn func(T) (T, error)) error {
	key := TypeOf[T]()
	return r.Decorate(key, func(instance any) (any, error) {
		v, ok := instance.(T)
		if !ok {
			return nil, TypeMismatchError{Expected: key, Actual: reflect.TypeOf(instance), Context: "decorate"}
		}
		return fn(v)
	})
}

func (r *ServiceRegistry) decoratorsFor(key reflect.Type) []Decorator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.decorators[key])
}

// decorate applies the decorators of key to instance.
func (r *ServiceRegistry) decorate(key reflect.Type, instance any) (any, error) {
	current := instance
	for i, d := range r.decoratorsFor(key) {
		decorated, err := d(current)
		if err != nil {
			return nil, DecoratorError{Key: key, Index: i, Cause: err}
		}
		if decorated == nil {
			return nil, DecoratorError{Key: key, Index: i, Cause: ErrNilImplementation}
		}
		current = decorated
	}
	return current, nil
}
