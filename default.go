package registry

import "sync/atomic"

var defaultRegistry atomic.Pointer[ServiceRegistry]

// SetDefault sets the process-wide ServiceRegistry returned by Default.
// This is similar to slog.SetDefault. Pass nil to remove it.
func SetDefault(r *ServiceRegistry) {
	defaultRegistry.Store(r)
}

// Default returns the ServiceRegistry set by SetDefault, or nil.
func Default() *ServiceRegistry {
	return defaultRegistry.Load()
}
