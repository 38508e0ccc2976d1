package driver

import (
	"sync"
)

// Factory creates a new adapter instance.
type Factory func() Adapter

// Well-known adapter names.
const (
	// AdapterWGPU is the GPU adapter built on the wgpu hal.
	AdapterWGPU = "wgpu"

	// AdapterNull is the in-memory software adapter.
	AdapterNull = "null"
)

// registry holds registered adapter factories.
var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Factory)
	// Priority order for adapter selection (first available wins).
	// Hardware first, null as fallback.
	adapterPriority = []string{AdapterWGPU, AdapterNull}
)

// Register registers an adapter factory with the given name.
// This is typically called from init() functions in adapter packages.
// If an adapter with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[name] = factory
}

// Unregister removes an adapter from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(adapters, name)
}

// Available returns a list of registered adapter names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if an adapter with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := adapters[name]
	return ok
}

// Get returns an adapter instance by name.
// Returns nil if the adapter is not registered.
func Get(name string) Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := adapters[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available adapter based on priority.
// Priority order: wgpu > null.
// Returns nil if no adapters are registered.
func Default() Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range adapterPriority {
		if factory, ok := adapters[name]; ok {
			if a := factory(); a != nil {
				return a
			}
		}
	}

	// Fallback: return first available
	for _, factory := range adapters {
		if a := factory(); a != nil {
			return a
		}
	}

	return nil
}

// InitDefault initializes the default adapter based on availability.
func InitDefault() (Adapter, error) {
	a := Default()
	if a == nil {
		return nil, ErrNotAvailable
	}

	if err := a.Init(); err != nil {
		return nil, err
	}

	return a, nil
}
