// Package cache stores resolved service instances by lifetime.
//
// Singleton instances and per-scope instances are guarded by independent
// locks, and every scope has its own lock, so readers of one scope never
// wait on writers of another.
package cache

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// InstanceCache manages cached singleton and scoped instances.
type InstanceCache struct {
	// Singleton instances, cleared only by Clear or Evict
	singletons     map[reflect.Type]any
	singletonOrder []reflect.Type
	singletonMu    sync.RWMutex

	// Scoped instances, scopeID -> cache
	scoped   map[string]*scopeCache
	scopedMu sync.RWMutex

	stats struct {
		hits      int64
		misses    int64
		evictions int64
	}
}

// scopeCache holds instances for a single scope.
type scopeCache struct {
	instances map[reflect.Type]any
	order     []reflect.Type
	cleared   bool // detached from the cache; writers must look the scope up again
	mu        sync.RWMutex
}

// Entry is a cached instance, as returned by eviction calls.
type Entry struct {
	Key      reflect.Type
	Instance any
}

// Statistics is a point-in-time view of cache counters.
type Statistics struct {
	Hits           int64
	Misses         int64
	Evictions      int64
	SingletonCount int
	ScopedCount    int
	ActiveScopes   int
}

// New creates an empty instance cache.
func New() *InstanceCache {
	return &InstanceCache{
		singletons: make(map[reflect.Type]any),
		scoped:     make(map[string]*scopeCache),
	}
}

// Singleton returns the cached singleton for key.
func (c *InstanceCache) Singleton(key reflect.Type) (any, bool) {
	c.singletonMu.RLock()
	instance, ok := c.singletons[key]
	c.singletonMu.RUnlock()

	c.record(ok)
	return instance, ok
}

// SetSingleton caches a singleton instance.
func (c *InstanceCache) SetSingleton(key reflect.Type, instance any) {
	c.singletonMu.Lock()
	defer c.singletonMu.Unlock()

	if _, exists := c.singletons[key]; !exists {
		c.singletonOrder = append(c.singletonOrder, key)
	}
	c.singletons[key] = instance
}

// Scoped returns the instance cached for key in scopeID.
func (c *InstanceCache) Scoped(scopeID string, key reflect.Type) (any, bool) {
	c.scopedMu.RLock()
	scope, exists := c.scoped[scopeID]
	c.scopedMu.RUnlock()

	if !exists {
		c.record(false)
		return nil, false
	}

	scope.mu.RLock()
	instance, ok := scope.instances[key]
	scope.mu.RUnlock()

	c.record(ok)
	return instance, ok
}

// GetOrSetScoped returns the instance already cached for key in scopeID, or
// caches and returns instance if there is none. The boolean reports whether
// an existing instance won. A scope cleared concurrently is recreated, so
// the stored instance is always visible to the next ClearScope.
func (c *InstanceCache) GetOrSetScoped(scopeID string, key reflect.Type, instance any) (any, bool) {
	for {
		if stored, existed, ok := c.scope(scopeID).getOrSet(key, instance); ok {
			return stored, existed
		}
	}
}

// getOrSet reports ok=false when the scope was cleared after it was looked up.
func (s *scopeCache) getOrSet(key reflect.Type, instance any) (stored any, existed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleared {
		return nil, false, false
	}
	if existing, found := s.instances[key]; found {
		return existing, true, true
	}
	s.instances[key] = instance
	s.order = append(s.order, key)
	return instance, false, true
}

func (c *InstanceCache) scope(scopeID string) *scopeCache {
	c.scopedMu.RLock()
	scope, exists := c.scoped[scopeID]
	c.scopedMu.RUnlock()
	if exists {
		return scope
	}

	c.scopedMu.Lock()
	defer c.scopedMu.Unlock()

	if scope, exists = c.scoped[scopeID]; !exists {
		scope = &scopeCache{instances: make(map[reflect.Type]any)}
		c.scoped[scopeID] = scope
	}
	return scope
}

// Evict removes key from the singleton cache and from every scope.
// It returns the evicted entries.
func (c *InstanceCache) Evict(key reflect.Type) []Entry {
	var evicted []Entry

	c.singletonMu.Lock()
	if instance, ok := c.singletons[key]; ok {
		delete(c.singletons, key)
		c.singletonOrder = slices.DeleteFunc(c.singletonOrder, func(k reflect.Type) bool { return k == key })
		evicted = append(evicted, Entry{Key: key, Instance: instance})
	}
	c.singletonMu.Unlock()

	c.scopedMu.RLock()
	scopes := make([]*scopeCache, 0, len(c.scoped))
	for _, s := range c.scoped {
		scopes = append(scopes, s)
	}
	c.scopedMu.RUnlock()

	for _, s := range scopes {
		s.mu.Lock()
		if instance, ok := s.instances[key]; ok {
			delete(s.instances, key)
			s.order = slices.DeleteFunc(s.order, func(k reflect.Type) bool { return k == key })
			evicted = append(evicted, Entry{Key: key, Instance: instance})
		}
		s.mu.Unlock()
	}

	atomic.AddInt64(&c.stats.evictions, int64(len(evicted)))
	return evicted
}

// ClearScope discards the cache of scopeID and returns its entries in
// insertion order.
func (c *InstanceCache) ClearScope(scopeID string) []Entry {
	c.scopedMu.Lock()
	scope, exists := c.scoped[scopeID]
	if exists {
		delete(c.scoped, scopeID)
	}
	c.scopedMu.Unlock()

	if !exists {
		return nil
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()

	entries := make([]Entry, 0, len(scope.order))
	for _, k := range scope.order {
		entries = append(entries, Entry{Key: k, Instance: scope.instances[k]})
	}
	scope.instances = make(map[reflect.Type]any)
	scope.order = nil
	scope.cleared = true

	atomic.AddInt64(&c.stats.evictions, int64(len(entries)))
	return entries
}

// Clear removes every cached instance and returns the singleton entries in
// insertion order. Scoped entries are dropped without being returned.
func (c *InstanceCache) Clear() []Entry {
	c.singletonMu.Lock()
	entries := make([]Entry, 0, len(c.singletonOrder))
	for _, k := range c.singletonOrder {
		entries = append(entries, Entry{Key: k, Instance: c.singletons[k]})
	}
	c.singletons = make(map[reflect.Type]any)
	c.singletonOrder = nil
	c.singletonMu.Unlock()

	c.scopedMu.Lock()
	scopedCount := 0
	for _, scope := range c.scoped {
		scope.mu.Lock()
		scopedCount += len(scope.instances)
		scope.cleared = true
		scope.mu.Unlock()
	}
	c.scoped = make(map[string]*scopeCache)
	c.scopedMu.Unlock()

	atomic.AddInt64(&c.stats.evictions, int64(len(entries)+scopedCount))
	return entries
}

// HasSingleton checks if a singleton instance exists.
func (c *InstanceCache) HasSingleton(key reflect.Type) bool {
	c.singletonMu.RLock()
	defer c.singletonMu.RUnlock()

	_, exists := c.singletons[key]
	return exists
}

// ScopeIDs returns all scopes holding a cache.
func (c *InstanceCache) ScopeIDs() []string {
	c.scopedMu.RLock()
	defer c.scopedMu.RUnlock()

	ids := make([]string, 0, len(c.scoped))
	for id := range c.scoped {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ScopeSize returns the number of instances cached in a scope.
func (c *InstanceCache) ScopeSize(scopeID string) int {
	c.scopedMu.RLock()
	scope, exists := c.scoped[scopeID]
	c.scopedMu.RUnlock()

	if !exists {
		return 0
	}

	scope.mu.RLock()
	defer scope.mu.RUnlock()

	return len(scope.instances)
}

// Statistics returns cache counters.
func (c *InstanceCache) Statistics() Statistics {
	c.singletonMu.RLock()
	singletons := len(c.singletons)
	c.singletonMu.RUnlock()

	c.scopedMu.RLock()
	scopes := len(c.scoped)
	scoped := 0
	for _, s := range c.scoped {
		s.mu.RLock()
		scoped += len(s.instances)
		s.mu.RUnlock()
	}
	c.scopedMu.RUnlock()

	return Statistics{
		Hits:           atomic.LoadInt64(&c.stats.hits),
		Misses:         atomic.LoadInt64(&c.stats.misses),
		Evictions:      atomic.LoadInt64(&c.stats.evictions),
		SingletonCount: singletons,
		ScopedCount:    scoped,
		ActiveScopes:   scopes,
	}
}

func (c *InstanceCache) record(hit bool) {
	if hit {
		atomic.AddInt64(&c.stats.hits, 1)
		return
	}
	atomic.AddInt64(&c.stats.misses, 1)
}
