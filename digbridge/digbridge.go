// Package digbridge exposes ServiceRegistry bindings to a go.uber.org/dig
// container, so code built on dig can consume services registered here.
//
// Every exported key becomes a dig constructor that resolves the key from
// the registry on demand. dig caches the first value it receives, so a key
// is effectively a singleton on the dig side whatever its lifetime in the
// registry.
package digbridge

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/registry"
)

var errorType = reflect.TypeFor[error]()

// Config holds export options.
type Config struct {
	Scope registry.Scope
	Keys  []reflect.Type
}

// Option configures Export.
type Option func(*Config)

// InScope resolves exported keys in scope instead of GlobalScope.
func InScope(scope registry.Scope) Option {
	return func(c *Config) { c.Scope = scope }
}

// Only limits the export to keys.
func Only(keys ...reflect.Type) Option {
	return func(c *Config) { c.Keys = append(c.Keys, keys...) }
}

// Export provides every registered key (or the keys selected with Only) to c.
func Export(reg *registry.ServiceRegistry, c *dig.Container, opts ...Option) error {
	cfg := Config{Scope: registry.GlobalScope}
	for _, opt := range opts {
		opt(&cfg)
	}

	keys := cfg.Keys
	if len(keys) == 0 {
		keys = reg.Keys()
	}

	for _, key := range keys {
		if err := c.Provide(constructor(reg, key, cfg.Scope).Interface()); err != nil {
			return fmt.Errorf("digbridge: provide %s: %w", key, err)
		}
	}
	return nil
}

// constructor builds a func() (key, error) that resolves key from reg.
func constructor(reg *registry.ServiceRegistry, key reflect.Type, scope registry.Scope) reflect.Value {
	fnType := reflect.FuncOf(nil, []reflect.Type{key, errorType}, false)

	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		out := reflect.New(key).Elem()
		errOut := reflect.New(errorType).Elem()

		c, err := reg.ResolveService(key, scope)
		if err != nil {
			errOut.Set(reflect.ValueOf(err))
			return []reflect.Value{out, errOut}
		}

		v := reflect.ValueOf(c.Value())
		if !v.IsValid() || !v.Type().AssignableTo(key) {
			errOut.Set(reflect.ValueOf(error(registry.TypeMismatchError{
				Expected: key,
				Actual:   reflect.TypeOf(c.Value()),
				Context:  "dig export",
			})))
			return []reflect.Value{out, errOut}
		}

		out.Set(v)
		return []reflect.Value{out, errOut}
	})
}
