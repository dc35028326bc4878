package registry

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/junioryono/registry/internal/graph"
	"github.com/junioryono/registry/internal/latch"
)

// ResolveService resolves key and its declared dependencies in scope and
// returns the instance with resolution metadata.
//
// Resolution first checks the declared dependency graph reachable from key
// for cycles, missing bindings and lifetime conflicts, and only then
// constructs instances. Singleton instances are constructed at most once,
// even under concurrent resolution. Scoped instances are cached per scope;
// an empty scope selects the binding's declared scope. Transient instances
// are never cached.
//
// Errors returned by factories are passed through unchanged, and a failed
// construction never leaves an instance in a cache.
func (r *ServiceRegistry) ResolveService(key reflect.Type, scope Scope) (Container[any], error) {
	start := time.Now()

	c, b, err := r.resolveService(key, scope)

	event := ResolveEvent{Key: key, Scope: scope, Duration: time.Since(start), Err: err}
	if b != nil {
		event.Lifetime = b.Lifetime
		event.Cached, _ = c.GetMetadata(MetaCached, false).(bool)
	}
	for _, hook := range r.opts.hooks {
		hook(event)
	}

	if err != nil {
		r.opts.logger.Debug().Err(err).
			Str("service", formatType(key)).
			Str("scope", string(scope)).
			Msg("service resolution failed")
	}

	return c, err
}

func (r *ServiceRegistry) resolveService(key reflect.Type, scope Scope) (Container[any], *Binding, error) {
	if r.closed.Load() {
		return Container[any]{}, nil, ErrRegistryClosed
	}
	if key == nil {
		return Container[any]{}, nil, InvalidBindingError{Cause: ErrNilKey}
	}

	p, err := r.plan(key)
	if err != nil {
		return Container[any]{}, nil, err
	}
	if r.opts.strict {
		if err := p.checkLifetimes(key); err != nil {
			return Container[any]{}, nil, err
		}
	}

	res := &resolution{registry: r, plan: p, scope: scope}
	instance, cached, err := res.instantiate(key)
	if err != nil {
		return Container[any]{}, nil, err
	}

	b := p[key]
	effective := res.effectiveScope(b)

	r.opts.logger.Debug().
		Str("service", formatType(key)).
		Stringer("lifetime", b.Lifetime).
		Str("scope", string(effective)).
		Bool("cached", cached).
		Msg("service resolved")

	return NewContainer(instance, map[string]any{
		MetaResolvedAt: r.opts.clock(),
		MetaLifetime:   b.Lifetime,
		MetaScope:      effective,
		MetaService:    key.String(),
		MetaCached:     cached,
	}), b, nil
}

// plan is the set of default bindings reachable from one resolution root.
// It is taken under the read lock and then used without it, so construction
// sees one consistent view of the bindings.
type plan map[reflect.Type]*Binding

func (r *ServiceRegistry) plan(root reflect.Type) (plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rootBinding := defaultBinding(r.bindings[root])
	if rootBinding == nil {
		return nil, UnresolvedDependencyError{Key: root}
	}

	edges := func(k reflect.Type) []reflect.Type {
		if b := defaultBinding(r.bindings[k]); b != nil {
			return b.Dependencies
		}
		return nil
	}
	if cycle := graph.FindCycle(root, edges); cycle != nil {
		return nil, CyclicDependencyError{Path: cycle}
	}

	p := plan{root: rootBinding}
	queue := []reflect.Type{root}
	for len(queue) > 0 {
		current := p[queue[0]]
		queue = queue[1:]

		for _, dep := range current.Dependencies {
			if _, seen := p[dep]; seen {
				continue
			}
			b := defaultBinding(r.bindings[dep])
			if b == nil {
				return nil, UnresolvedDependencyError{Key: dep, RequestedBy: current.Key}
			}
			p[dep] = b
			queue = append(queue, dep)
		}
	}

	return p, nil
}

// checkLifetimes rejects Singletons that would capture a Scoped instance,
// directly or through Transient dependencies.
func (p plan) checkLifetimes(root reflect.Type) error {
	scopedVia := make(map[reflect.Type]reflect.Type) // key -> the Scoped key it reaches

	var visit func(k reflect.Type) (reflect.Type, error)
	visit = func(k reflect.Type) (reflect.Type, error) {
		if s, done := scopedVia[k]; done {
			return s, nil
		}

		b := p[k]
		var reached reflect.Type
		if b.Lifetime == Scoped {
			reached = k
		}

		for _, dep := range b.Dependencies {
			s, err := visit(dep)
			if err != nil {
				return nil, err
			}
			if s == nil {
				continue
			}
			if b.Lifetime == Singleton {
				return nil, LifetimeConflictError{
					Key:                k,
					Lifetime:           Singleton,
					Dependency:         s,
					DependencyLifetime: Scoped,
				}
			}
			if reached == nil {
				reached = s
			}
		}

		scopedVia[k] = reached
		return reached, nil
	}

	_, err := visit(root)
	return err
}

// resolution is the state of one ResolveService call.
type resolution struct {
	registry *ServiceRegistry
	plan     plan
	scope    Scope
	stack    []reflect.Type // keys in progress
}

func (res *resolution) scopeFor(b *Binding) Scope {
	if res.scope != "" {
		return res.scope
	}
	return b.Scope
}

// effectiveScope is the scope an instance of b belongs to. Singletons
// belong to GlobalScope whatever scope they were resolved from.
func (res *resolution) effectiveScope(b *Binding) Scope {
	if b.Lifetime == Singleton {
		return GlobalScope
	}
	return res.scopeFor(b)
}

// instantiate returns an instance for key, applying its lifetime. cached
// reports whether the instance came from a cache.
func (res *resolution) instantiate(key reflect.Type) (instance any, cached bool, err error) {
	if i := slices.Index(res.stack, key); i >= 0 {
		path := append(slices.Clone(res.stack[i:]), key)
		return nil, false, CyclicDependencyError{Path: path}
	}

	b := res.plan[key]
	r := res.registry

	switch b.Lifetime {
	case Singleton:
		if v, ok := r.cache.Singleton(key); ok {
			return v, true, nil
		}
		return res.once(latchKey{key: key}, b, func() (any, bool) {
			return r.cache.Singleton(key)
		}, func(v any) any {
			r.cache.SetSingleton(key, v)
			return v
		})

	case Scoped:
		scope := res.scopeFor(b)
		if v, ok := r.cache.Scoped(string(scope), key); ok {
			return v, true, nil
		}
		return res.once(latchKey{scope: scope, key: key}, b, func() (any, bool) {
			return r.cache.Scoped(string(scope), key)
		}, func(v any) any {
			stored, _ := r.cache.GetOrSetScoped(string(scope), key, v)
			return stored
		})

	default:
		v, err := res.construct(b)
		return v, false, err
	}
}

// once constructs b under the latch for slot. lookup re-checks the cache
// inside the latch; store caches a new instance and returns the instance
// that ended up in the cache.
func (res *resolution) once(slot latchKey, b *Binding, lookup func() (any, bool), store func(any) any) (any, bool, error) {
	r := res.registry
	hit := false

	v, err, shared := r.latches.Do(slot, func() (any, error) {
		if v, ok := lookup(); ok {
			hit = true
			return v, nil
		}

		v, err := res.construct(b)
		if err != nil {
			return nil, err
		}

		// Cache only if the binding is still registered; otherwise an
		// Unregister that already ran its eviction would be undone.
		r.mu.RLock()
		defer r.mu.RUnlock()
		if slices.Contains(r.bindings[b.Key], b) {
			v = store(v)
		}
		return v, nil
	})

	if pe, ok := err.(latch.PanicError); ok {
		return nil, false, fmt.Errorf("concurrent construction of %s failed: %w", formatType(b.Key), pe)
	}
	return v, hit || shared, err
}

// construct resolves the declared dependencies of b in order and invokes
// its implementation.
func (res *resolution) construct(b *Binding) (any, error) {
	res.stack = append(res.stack, b.Key)
	defer func() { res.stack = res.stack[:len(res.stack)-1] }()

	deps := Dependencies{
		keys:      b.Dependencies,
		instances: make([]any, len(b.Dependencies)),
		scope:     res.effectiveScope(b),
	}
	for i, dep := range b.Dependencies {
		v, _, err := res.instantiate(dep)
		if err != nil {
			return nil, err
		}
		deps.instances[i] = v
	}

	v, err := b.construct(deps)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("factory for %s returned no instance: %w", formatType(b.Key), ErrNilImplementation)
	}
	return res.registry.decorate(b.Key, v)
}
