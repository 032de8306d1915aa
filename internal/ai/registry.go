package ai

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a provider instance from settings.
type Factory func(settings *Settings) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider adds a named provider factory to the global registry.
// Registering the same name twice is a programming error.
func RegisterProvider(name string, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if name == "" {
		return NewConfigurationError(name, "name", "provider name is required")
	}
	if _, exists := registry[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	registry[name] = factory
	return nil
}

// NewProvider instantiates a registered provider by name.
func NewProvider(name string, settings *Settings) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, NewConfigurationError(name, "provider",
			fmt.Sprintf("unknown provider (registered: %v)", RegisteredProviders()))
	}
	return factory(settings)
}

// RegisteredProviders returns the registered provider names, sorted.
func RegisteredProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
