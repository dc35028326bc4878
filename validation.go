package registry

import (
	"errors"
	"fmt"
	"reflect"
)

// validateBinding checks a single binding declaration.
func validateBinding(b *Binding) error {
	if b.Key == nil {
		return InvalidBindingError{Cause: ErrNilKey}
	}
	if b.Implementation == nil {
		return InvalidBindingError{Key: b.Key, Cause: ErrNilImplementation}
	}

	if !b.Lifetime.IsValid() {
		return InvalidBindingError{Key: b.Key, Cause: LifetimeError{Value: int(b.Lifetime)}}
	}

	for _, dep := range b.Dependencies {
		switch dep {
		case nil:
			return InvalidBindingError{Key: b.Key, Cause: fmt.Errorf("dependency: %w", ErrNilKey)}
		case b.Key:
			return InvalidBindingError{Key: b.Key, Cause: ErrSelfDependency}
		}
	}

	return nil
}

// Validate checks that every registered key could be resolved right now:
// all declared dependencies are bound, the default bindings form no cycle,
// and no Singleton captures a Scoped binding. Nothing is constructed.
//
// Resolution performs the first two checks lazily, and the lifetime check
// only under WithStrictLifetimes; Validate lets startup code fail fast once
// registration is complete.
func (r *ServiceRegistry) Validate() error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	var errs []error
	seen := make(map[string]bool)
	for _, key := range r.Keys() {
		p, err := r.plan(key)
		if err == nil {
			err = p.checkLifetimes(key)
		}
		if err != nil {
			// A cycle is reported once per member otherwise.
			if msg := validationKey(err); msg != "" {
				if seen[msg] {
					continue
				}
				seen[msg] = true
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validationKey identifies errors that several roots can report identically.
func validationKey(err error) string {
	var cyc CyclicDependencyError
	if errors.As(err, &cyc) && len(cyc.Path) > 1 {
		return "cycle:" + cycleSignature(cyc.Path[:len(cyc.Path)-1])
	}
	var unresolved UnresolvedDependencyError
	if errors.As(err, &unresolved) {
		return "missing:" + formatType(unresolved.RequestedBy) + "->" + formatType(unresolved.Key)
	}
	return ""
}

// cycleSignature renders a cycle starting from its lexically smallest member,
// so rotations of the same cycle compare equal.
func cycleSignature(cycle []reflect.Type) string {
	start := 0
	for i, t := range cycle {
		if t.String() < cycle[start].String() {
			start = i
		}
	}

	sig := ""
	for i := range cycle {
		sig += cycle[(start+i)%len(cycle)].String() + ";"
	}
	return sig
}
