package testutil

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/registry"
)

// AssertResolvable checks that T resolves in scope and returns the instance.
func AssertResolvable[T any](t *testing.T, r *registry.ServiceRegistry, scope registry.Scope) T {
	t.Helper()
	c, err := registry.Resolve[T](r, scope)
	require.NoError(t, err, "failed to resolve %v in scope %q", registry.TypeOf[T](), scope)
	require.NotNil(t, c.Value(), "resolved service is nil")
	return c.Value()
}

// AssertNotFound checks that resolving T fails with a not-found error.
func AssertNotFound[T any](t *testing.T, r *registry.ServiceRegistry) {
	t.Helper()
	_, err := registry.Resolve[T](r, registry.GlobalScope)
	require.Error(t, err)
	assert.True(t, registry.IsNotFound(err), "expected not found error, got: %v", err)
}

// AssertCycle checks that err is a CyclicDependencyError with the given path.
func AssertCycle(t *testing.T, err error, path ...reflect.Type) {
	t.Helper()
	require.Error(t, err)

	var cyc registry.CyclicDependencyError
	require.True(t, errors.As(err, &cyc), "expected cyclic dependency error, got: %v", err)
	assert.Equal(t, path, cyc.Path)
}

// AssertSameInstance checks that two resolutions returned the same pointer.
func AssertSameInstance(t *testing.T, a, b any) {
	t.Helper()
	assert.Same(t, a, b, "expected the same instance")
}

// AssertDifferentInstances checks that two resolutions returned different pointers.
func AssertDifferentInstances(t *testing.T, a, b any) {
	t.Helper()
	assert.NotSame(t, a, b, "expected different instances")
}
