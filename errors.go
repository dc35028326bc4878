package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that typed errors report through Is.
// Match them with errors.Is; match typed errors with errors.As.

var (
	// Lookup errors.
	ErrKeyNotFound          = errors.New("key not found")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrCyclicDependency     = errors.New("cyclic dependency detected")

	// Registration errors.
	ErrDuplicateKey      = errors.New("key already registered")
	ErrInvalidBinding    = errors.New("invalid binding")
	ErrNilKey            = errors.New("service key cannot be nil")
	ErrSelfDependency    = errors.New("service cannot depend on itself")
	ErrNilImplementation = errors.New("implementation cannot be nil")

	// Lifecycle errors.
	ErrRegistryClosed = errors.New("registry has been closed")
	ErrScopeEmpty     = errors.New("scope cannot be empty")
)

var (
	_ error = LifetimeError{}
	_ error = DuplicateKeyError{}
	_ error = KeyNotFoundError{}
	_ error = UnresolvedDependencyError{}
	_ error = CyclicDependencyError{}
	_ error = InvalidBindingError{}
	_ error = LifetimeConflictError{}
	_ error = TypeMismatchError{}
	_ error = DisposalError{}
	_ error = ModuleError{}
	_ error = DecoratorError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// DuplicateKeyError is returned when an identical binding is registered twice.
type DuplicateKeyError struct {
	Key any
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already registered", formatKey(e.Key))
}

func (e DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// KeyNotFoundError is returned when a key has no binding.
type KeyNotFoundError struct {
	Key       any
	Available []any // registered keys, used for suggestions
}

func (e KeyNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("key not found: %s", formatKey(e.Key)))

	if similar := findSimilarKeys(e.Key, e.Available); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, k := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", formatKey(k)))
		}
	}

	return b.String()
}

func (e KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// UnresolvedDependencyError is returned when resolution reaches a key with no binding.
// RequestedBy is nil when the missing key was the one passed to ResolveService.
type UnresolvedDependencyError struct {
	Key         reflect.Type
	RequestedBy reflect.Type
}

func (e UnresolvedDependencyError) Error() string {
	if e.RequestedBy == nil {
		return fmt.Sprintf("unresolved dependency: no binding for %s", formatType(e.Key))
	}
	return fmt.Sprintf("unresolved dependency: %s requires %s, which has no binding",
		formatType(e.RequestedBy), formatType(e.Key))
}

func (e UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolvedDependency
}

// CyclicDependencyError reports a dependency cycle. Path starts and ends with the same key.
type CyclicDependencyError struct {
	Path []reflect.Type
}

func (e CyclicDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("cyclic dependency detected: ")
	b.WriteString(e.PathString())

	b.WriteString("\n\nTo resolve this:\n")
	b.WriteString("  • Remove one of the declared dependencies in the cycle\n")
	b.WriteString("  • Resolve the dependency lazily inside the factory instead of declaring it\n")

	return b.String()
}

// PathString renders the cycle as "A → B → A".
func (e CyclicDependencyError) PathString() string {
	parts := make([]string, len(e.Path))
	for i, t := range e.Path {
		parts[i] = formatType(t)
	}
	return strings.Join(parts, " → ")
}

func (e CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// InvalidBindingError is returned for malformed binding declarations.
type InvalidBindingError struct {
	Key   reflect.Type
	Cause error
}

func (e InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding for %s: %v", formatType(e.Key), e.Cause)
}

func (e InvalidBindingError) Is(target error) bool {
	return target == ErrInvalidBinding
}

func (e InvalidBindingError) Unwrap() error {
	return e.Cause
}

// LifetimeConflictError is returned when a Singleton would capture an instance
// whose lifetime is bound to a scope.
type LifetimeConflictError struct {
	Key                reflect.Type
	Lifetime           Lifetime
	Dependency         reflect.Type
	DependencyLifetime Lifetime
}

func (e LifetimeConflictError) Error() string {
	return fmt.Sprintf("lifetime conflict: %s (%s) cannot depend on %s (%s); "+
		"a singleton would keep one scope's instance alive in every scope",
		formatType(e.Key), e.Lifetime, formatType(e.Dependency), e.DependencyLifetime)
}

func (e LifetimeConflictError) Is(target error) bool {
	return target == ErrInvalidBinding
}

// TypeMismatchError indicates a resolved value is not assignable to the requested type.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// DisposalError aggregates errors from closing instances.
type DisposalError struct {
	Context string // "scope", "registry"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ModuleError wraps a failure inside a named module.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// DecoratorError reports a decorator that failed for Key. Index is the
// decorator's position in registration order.
type DecoratorError struct {
	Key   reflect.Type
	Index int
	Cause error
}

func (e DecoratorError) Error() string {
	return fmt.Sprintf("decorator %d failed for %s: %v", e.Index, formatType(e.Key), e.Cause)
}

func (e DecoratorError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err means a key or dependency had no binding.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrUnresolvedDependency)
}

// IsDuplicate reports whether err is a duplicate registration.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsCyclic reports whether err is a dependency cycle.
func IsCyclic(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}

// findSimilarKeys finds keys with similar names using a simple substring match
func findSimilarKeys(target any, available []any) []any {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := strings.ToLower(keyName(target))

	var similar []any
	for _, k := range available {
		if k == nil || k == target {
			continue
		}

		name := strings.ToLower(keyName(k))
		if strings.Contains(name, targetName) || strings.Contains(targetName, name) {
			similar = append(similar, k)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// keyName is formatKey without quoting, for comparing names.
func keyName(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return formatKey(key)
}

// formatKey formats a registry key for error messages.
func formatKey(key any) string {
	switch k := key.(type) {
	case nil:
		return "<nil>"
	case reflect.Type:
		return formatType(k)
	case string:
		return fmt.Sprintf("%q", k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
