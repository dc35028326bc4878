package registry

import (
	"slices"
	"sync"
)

// Registry is the minimal binding store shared by every registry in this package.
type Registry[K comparable, V any] interface {
	// Register binds value to key. It fails with DuplicateKeyError if the key
	// is already bound; replacing a binding is never implicit.
	Register(key K, value V) error

	// Get returns the value bound to key, or KeyNotFoundError.
	Get(key K) (V, error)

	// Keys returns a snapshot of all registered keys in insertion order.
	Keys() []K

	// IsRegistered reports whether key is bound.
	IsRegistered(key K) bool

	// Unregister removes the binding for key and reports whether one existed.
	Unregister(key K) bool
}

var _ Registry[string, int] = (*Store[string, int])(nil)

// Store is an ordered, concurrency-safe implementation of Registry.
// The zero value is not usable; create one with NewStore.
type Store[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
	order  []K
}

// NewStore creates an empty Store.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		values: make(map[K]V),
	}
}

func (s *Store[K, V]) Register(key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[key]; exists {
		return DuplicateKeyError{Key: key}
	}

	s.values[key] = value
	s.order = append(s.order, key)
	return nil
}

// Overwrite binds value to key, replacing any existing binding.
// A replaced key keeps its original position in Keys.
// It reports whether a previous binding was replaced.
func (s *Store[K, V]) Overwrite(key K, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.values[key]
	if !exists {
		s.order = append(s.order, key)
	}
	s.values[key] = value
	return exists
}

func (s *Store[K, V]) Get(key K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return value, KeyNotFoundError{Key: key, Available: s.availableLocked()}
	}
	return value, nil
}

func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

func (s *Store[K, V]) IsRegistered(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[key]
	return ok
}

func (s *Store[K, V]) Unregister(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return false
	}

	delete(s.values, key)
	s.order = slices.DeleteFunc(s.order, func(k K) bool { return k == key })
	return true
}

// Len returns the number of bound keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// Range calls fn for each binding in insertion order until fn returns false.
// fn runs on a snapshot, so it may call back into the Store.
func (s *Store[K, V]) Range(fn func(key K, value V) bool) {
	s.mu.RLock()
	keys := slices.Clone(s.order)
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = s.values[k]
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}

func (s *Store[K, V]) availableLocked() []any {
	out := make([]any, len(s.order))
	for i, k := range s.order {
		out[i] = k
	}
	return out
}
