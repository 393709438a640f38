package backend

import (
	"sync"
)

// Backend names used for registration and selection.
const (
	NameNative   = "native"
	NameSoftware = "software"
)

// Factory creates a new backend instance from injected configuration.
type Factory func(cfg Config) Backend

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for default selection (first available wins).
	// Native GPU first, software rasterizer as fallback.
	priority = []string{NameNative, NameSoftware}
)

// Register registers a backend factory under the given name, typically from
// an init() function in the backend's package. Re-registering a name replaces
// the factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get returns a new backend instance by name, or nil if the name is not
// registered.
func Get(name string, cfg Config) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := factories[name]
	if !ok {
		return nil
	}
	return factory(cfg)
}

// Default returns the best available backend by priority, or nil when none
// are registered.
func Default(cfg Config) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		if factory, ok := factories[name]; ok {
			if b := factory(cfg); b != nil {
				return b
			}
		}
	}

	// Fallback: first available.
	for _, factory := range factories {
		if b := factory(cfg); b != nil {
			return b
		}
	}
	return nil
}
