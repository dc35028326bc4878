package registry_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junioryono/registry"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{
			name:     "duplicate key",
			err:      registry.DuplicateKeyError{Key: loggerKey},
			sentinel: registry.ErrDuplicateKey,
			contains: "Logger already registered",
		},
		{
			name:     "string key not found",
			err:      registry.KeyNotFoundError{Key: "json"},
			sentinel: registry.ErrKeyNotFound,
			contains: `key not found: "json"`,
		},
		{
			name:     "unresolved root",
			err:      registry.UnresolvedDependencyError{Key: loggerKey},
			sentinel: registry.ErrUnresolvedDependency,
			contains: "no binding for Logger",
		},
		{
			name:     "unresolved dependency",
			err:      registry.UnresolvedDependencyError{Key: loggerKey, RequestedBy: databaseKey},
			sentinel: registry.ErrUnresolvedDependency,
			contains: "Database requires Logger",
		},
		{
			name:     "cycle",
			err:      registry.CyclicDependencyError{Path: []reflect.Type{keyA, keyB, keyA}},
			sentinel: registry.ErrCyclicDependency,
			contains: "ServiceA → ServiceB → ServiceA",
		},
		{
			name:     "invalid binding",
			err:      registry.InvalidBindingError{Key: loggerKey, Cause: registry.ErrSelfDependency},
			sentinel: registry.ErrSelfDependency,
			contains: "invalid binding for Logger",
		},
		{
			name: "lifetime conflict",
			err: registry.LifetimeConflictError{
				Key:                keyA,
				Lifetime:           registry.Singleton,
				Dependency:         keyB,
				DependencyLifetime: registry.Scoped,
			},
			sentinel: registry.ErrInvalidBinding,
			contains: "ServiceA (Singleton) cannot depend on ServiceB (Scoped)",
		},
		{
			name:     "module",
			err:      registry.ModuleError{Module: "db", Cause: registry.ErrNilKey},
			sentinel: registry.ErrNilKey,
			contains: `module "db"`,
		},
		{
			name:     "decorator",
			err:      registry.DecoratorError{Key: loggerKey, Index: 2, Cause: registry.ErrNilImplementation},
			sentinel: registry.ErrNilImplementation,
			contains: "decorator 2 failed for Logger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, registry.IsNotFound(registry.KeyNotFoundError{Key: "x"}))
	assert.True(t, registry.IsNotFound(registry.UnresolvedDependencyError{Key: loggerKey}))
	assert.False(t, registry.IsNotFound(registry.DuplicateKeyError{Key: "x"}))

	assert.True(t, registry.IsDuplicate(fmt.Errorf("ctx: %w", registry.DuplicateKeyError{Key: "x"})))
	assert.False(t, registry.IsDuplicate(errors.New("other")))

	assert.True(t, registry.IsCyclic(registry.CyclicDependencyError{}))
	assert.False(t, registry.IsCyclic(nil))
}

func TestKeyNotFoundError_Suggestions(t *testing.T) {
	err := registry.KeyNotFoundError{
		Key:       "json",
		Available: []any{"jsonl", "xml", "geojson"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Did you mean one of these?")
	assert.Contains(t, msg, `"jsonl"`)
	assert.Contains(t, msg, `"geojson"`)
	assert.NotContains(t, msg, `"xml"`)

	plain := registry.KeyNotFoundError{Key: "yaml", Available: []any{"xml"}}
	assert.NotContains(t, plain.Error(), "Did you mean")
}

func TestDisposalError(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	single := registry.DisposalError{Context: "scope s1", Errors: []error{first}}
	assert.Equal(t, "scope s1 disposal failed: first", single.Error())

	multi := registry.DisposalError{Context: "registry", Errors: []error{first, second}}
	assert.Contains(t, multi.Error(), "registry disposal failed with 2 errors:")
	assert.Contains(t, multi.Error(), "2. second")
	assert.ErrorIs(t, multi, first)
	assert.ErrorIs(t, multi, second)
}
