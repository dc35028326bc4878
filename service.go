package registry

import (
	"context"
	"io"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/junioryono/registry/internal/cache"
	"github.com/junioryono/registry/internal/graph"
	"github.com/junioryono/registry/internal/latch"
)

var _ Registry[reflect.Type, any] = (*ServiceRegistry)(nil)

// CacheStatistics is a point-in-time view of the instance caches.
type CacheStatistics = cache.Statistics

// ServiceRegistry resolves interface keys to implementation instances.
//
// It offers two layers over one state. The simplified layer (Register, Get,
// Keys, IsRegistered, Unregister) satisfies Registry and treats every
// binding as a global Singleton. The domain layer (RegisterService,
// ResolveService and the introspection methods) exposes lifetimes, scopes
// and declared dependencies.
//
// A key may have several bindings. Resolution uses the first binding
// registered for the key unless a binding was registered with AsDefault.
//
// All methods are safe for concurrent use. Construction never runs while
// the binding lock is held, so registration is never blocked by a slow
// factory.
type ServiceRegistry struct {
	mu         sync.RWMutex
	bindings   map[reflect.Type][]*Binding
	order      []reflect.Type
	decorators map[reflect.Type][]Decorator

	cache   *cache.InstanceCache
	latches latch.Group[latchKey]

	opts   *options
	closed atomic.Bool
}

// latchKey identifies one cache slot. Singletons use an empty scope.
type latchKey struct {
	scope Scope
	key   reflect.Type
}

// NewServiceRegistry creates an empty ServiceRegistry.
func NewServiceRegistry(opts ...Option) *ServiceRegistry {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(o)
	}

	return &ServiceRegistry{
		bindings: make(map[reflect.Type][]*Binding),
		cache:    cache.New(),
		opts:     o,
	}
}

// Register binds impl to key as a global Singleton with no dependencies.
// Registering a different implementation for a bound key adds an
// alternative binding; registering the same implementation again fails
// with DuplicateKeyError.
func (r *ServiceRegistry) Register(key reflect.Type, impl any) error {
	return r.RegisterService(key, impl)
}

// RegisterService binds impl to key with explicit lifetime, scope and
// dependencies. Direct self-dependencies are rejected here; longer cycles
// are reported by ResolveService, since a later registration may be what
// closes them.
func (r *ServiceRegistry) RegisterService(key reflect.Type, impl any, opts ...ServiceOption) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	b, err := r.newBinding(key, impl, opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	existing := r.bindings[key]
	for _, other := range existing {
		if sameImplementation(other.Implementation, impl) {
			r.mu.Unlock()
			return DuplicateKeyError{Key: key}
		}
	}
	if len(existing) == 0 {
		r.order = append(r.order, key)
	}
	r.bindings[key] = append(existing, b)
	r.mu.Unlock()

	r.opts.logger.Debug().
		Str("service", key.String()).
		Stringer("lifetime", b.Lifetime).
		Str("scope", string(b.Scope)).
		Int("dependencies", len(b.Dependencies)).
		Int("alternatives", len(existing)).
		Msg("service registered")

	return nil
}

func (r *ServiceRegistry) newBinding(key reflect.Type, impl any, opts []ServiceOption) (*Binding, error) {
	b := &Binding{
		Key:            key,
		Implementation: impl,
		Lifetime:       Singleton,
		Scope:          GlobalScope,
		Registered:     r.opts.clock(),
	}
	for _, opt := range opts {
		opt.apply(b)
	}

	if b.Scope == "" {
		b.Scope = GlobalScope
	}
	if err := validateBinding(b); err != nil {
		return nil, err
	}

	return b, nil
}

// Get resolves key in GlobalScope and returns the bare instance.
func (r *ServiceRegistry) Get(key reflect.Type) (any, error) {
	if !r.IsRegistered(key) {
		return nil, KeyNotFoundError{Key: key, Available: r.available()}
	}

	c, err := r.ResolveService(key, GlobalScope)
	if err != nil {
		// Unregistered between the check and the resolution.
		if e, ok := err.(UnresolvedDependencyError); ok && e.RequestedBy == nil && e.Key == key {
			return nil, KeyNotFoundError{Key: key, Available: r.available()}
		}
		return nil, err
	}
	return c.Value(), nil
}

// Keys returns every interface key with at least one binding, in the order
// keys were first registered.
func (r *ServiceRegistry) Keys() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// IsRegistered reports whether key has at least one binding.
func (r *ServiceRegistry) IsRegistered(key reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings[key]) > 0
}

// Unregister removes every binding for key and evicts its cached singleton
// and scoped instances. Evicted instances are not closed.
func (r *ServiceRegistry) Unregister(key reflect.Type) bool {
	r.mu.Lock()
	removed := len(r.bindings[key])
	if removed > 0 {
		delete(r.bindings, key)
		r.order = slices.DeleteFunc(r.order, func(k reflect.Type) bool { return k == key })
	}
	r.mu.Unlock()

	if removed == 0 {
		return false
	}

	evicted := r.cache.Evict(key)

	r.opts.logger.Debug().
		Str("service", key.String()).
		Int("bindings", removed).
		Int("evicted", len(evicted)).
		Msg("service unregistered")

	return true
}

// GetAllRegistrations returns a snapshot of every binding, grouped by key in
// registration order.
func (r *ServiceRegistry) GetAllRegistrations() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	for _, key := range r.order {
		for _, b := range r.bindings[key] {
			out = append(out, b.clone())
		}
	}
	return out
}

// GetRegistrationsByInterface returns a snapshot of the bindings for key in
// registration order. The result is empty, never nil, when key is unbound.
func (r *ServiceRegistry) GetRegistrationsByInterface(key reflect.Type) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.bindings[key]
	out := make([]Binding, 0, len(list))
	for _, b := range list {
		out = append(out, b.clone())
	}
	return out
}

// EndScope releases every instance cached for scope. Instances implementing
// Disposable or DisposableWithContext are closed in reverse creation order.
// Ending a scope that holds no instances is a no-op.
func (r *ServiceRegistry) EndScope(scope Scope) error {
	return r.EndScopeContext(context.Background(), scope)
}

// EndScopeContext is EndScope with a context passed to DisposableWithContext.
func (r *ServiceRegistry) EndScopeContext(ctx context.Context, scope Scope) error {
	if scope == "" {
		return ErrScopeEmpty
	}

	entries := r.cache.ClearScope(string(scope))

	r.opts.logger.Debug().
		Str("scope", string(scope)).
		Int("released", len(entries)).
		Msg("scope ended")

	return dispose(ctx, "scope "+string(scope), entries)
}

// Close ends every scope still holding instances, then clears the singleton
// cache and closes cached singletons in reverse creation order. Bindings are
// kept for introspection, but no further registration or resolution is
// possible. Calling Close again is a no-op.
func (r *ServiceRegistry) Close() error {
	return r.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext.
func (r *ServiceRegistry) CloseContext(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	scopes := r.cache.ScopeIDs()
	for _, id := range scopes {
		if err := dispose(ctx, "scope "+id, r.cache.ClearScope(id)); err != nil {
			errs = append(errs, err)
		}
	}

	entries := r.cache.Clear()
	if err := dispose(ctx, "registry", entries); err != nil {
		errs = append(errs, err)
	}

	r.opts.logger.Debug().
		Int("scopes", len(scopes)).
		Int("singletons", len(entries)).
		Msg("registry closed")

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return DisposalError{Context: "registry", Errors: errs}
	}
}

// Stats returns cache statistics.
func (r *ServiceRegistry) Stats() CacheStatistics {
	return r.cache.Statistics()
}

// Scopes returns the scopes currently holding cached instances.
func (r *ServiceRegistry) Scopes() []Scope {
	ids := r.cache.ScopeIDs()
	out := make([]Scope, len(ids))
	for i, id := range ids {
		out[i] = Scope(id)
	}
	return out
}

// WriteDOT writes the declared dependency graph of the default bindings in
// Graphviz DOT format.
func (r *ServiceRegistry) WriteDOT(w io.Writer) error {
	return graph.NewVisualizer(r.dependencyGraph()).WriteDOT(w)
}

// WriteText writes the declared dependency graph grouped by depth.
func (r *ServiceRegistry) WriteText(w io.Writer) error {
	return graph.NewVisualizer(r.dependencyGraph()).WriteText(w)
}

func (r *ServiceRegistry) dependencyGraph() *graph.Graph[reflect.Type] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := graph.New[reflect.Type]()
	for _, key := range r.order {
		b := defaultBinding(r.bindings[key])
		g.Add(graph.Node[reflect.Type]{
			Key:          key,
			Label:        formatType(key),
			Lifetime:     b.Lifetime.String(),
			Dependencies: b.Dependencies,
		})
	}
	return g
}

func (r *ServiceRegistry) available() []any {
	keys := r.Keys()
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

// defaultBinding returns the first binding marked as default, or the first
// binding registered.
func defaultBinding(list []*Binding) *Binding {
	if len(list) == 0 {
		return nil
	}
	for _, b := range list {
		if b.Default {
			return b
		}
	}
	return list[0]
}
