package registry

import (
	"maps"
	"reflect"
)

// Metadata keys attached by ServiceRegistry.ResolveService.
const (
	MetaResolvedAt = "resolved_at" // time.Time
	MetaLifetime   = "lifetime"    // Lifetime
	MetaScope      = "scope"       // Scope
	MetaService    = "service"     // string form of the interface key
	MetaCached     = "cached"      // bool, true when served from a cache
)

// Container is an immutable value paired with a metadata mapping.
// It is the unit returned by resolution and may be shared between goroutines
// without locking.
type Container[T any] struct {
	value    T
	metadata map[string]any
}

// NewContainer wraps value with a copy of metadata.
func NewContainer[T any](value T, metadata map[string]any) Container[T] {
	return Container[T]{
		value:    value,
		metadata: maps.Clone(metadata),
	}
}

// Value returns the wrapped value.
func (c Container[T]) Value() T {
	return c.value
}

// Metadata returns a copy of the metadata mapping.
// The result is never nil.
func (c Container[T]) Metadata() map[string]any {
	out := make(map[string]any, len(c.metadata))
	maps.Copy(out, c.metadata)
	return out
}

// GetMetadata returns the metadata value for key, or def if the key is absent.
func (c Container[T]) GetMetadata(key string, def any) any {
	if v, ok := c.metadata[key]; ok {
		return v
	}
	return def
}

// Widen converts a container to one of a more general value type.
// Containers only produce values, so this is always safe.
func Widen[T any](c Container[T]) Container[any] {
	return Container[any]{value: c.value, metadata: c.metadata}
}

// Narrow converts a Container[any] to Container[T], failing with a
// TypeMismatchError when the wrapped value is not a T.
func Narrow[T any](c Container[any]) (Container[T], error) {
	v, ok := c.value.(T)
	if !ok && c.value != nil {
		return Container[T]{}, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(c.value),
			Context:  "container narrowing",
		}
	}
	return Container[T]{value: v, metadata: c.metadata}, nil
}
