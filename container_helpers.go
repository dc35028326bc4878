package registry

import (
	"fmt"
	"reflect"
)

// TypeOf returns the interface key for T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// RegisterService is a generic helper that binds impl to the key of T.
func RegisterService[T any](r *ServiceRegistry, impl any, opts ...ServiceOption) error {
	return r.RegisterService(TypeOf[T](), impl, opts...)
}

// Resolve is a generic helper that resolves T in scope.
func Resolve[T any](r *ServiceRegistry, scope Scope) (Container[T], error) {
	c, err := r.ResolveService(TypeOf[T](), scope)
	if err != nil {
		return Container[T]{}, err
	}
	return Narrow[T](c)
}

// MustResolve resolves T in scope and panics on error.
func MustResolve[T any](r *ServiceRegistry, scope Scope) T {
	c, err := Resolve[T](r, scope)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(TypeOf[T]()), err))
	}
	return c.Value()
}

// Get is a generic helper for ServiceRegistry.Get.
func Get[T any](r *ServiceRegistry) (T, error) {
	var zero T

	key := TypeOf[T]()
	instance, err := r.Get(key)
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{Expected: key, Actual: reflect.TypeOf(instance), Context: "type assertion"}
	}
	return result, nil
}

// IsRegistered checks if the key of T has a binding.
func IsRegistered[T any](r *ServiceRegistry) bool {
	return r.IsRegistered(TypeOf[T]())
}
