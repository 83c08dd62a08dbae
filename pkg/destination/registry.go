package destination

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores destinations by provider key. It is populated once during
// startup wiring; after that it only serves concurrent lookups.
type Registry struct {
	mu           sync.RWMutex
	destinations map[string]Destination
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		destinations: make(map[string]Destination),
	}
}

// Register adds a destination by its Key(). Duplicate keys return an error.
func (r *Registry) Register(dest Destination) error {
	if dest == nil {
		return fmt.Errorf("destination: destination is required")
	}
	key := dest.Key()
	if key == "" {
		return fmt.Errorf("destination: destination key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[key]; exists {
		return fmt.Errorf("destination: destination %q already registered", key)
	}

	r.destinations[key] = dest
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(dest Destination) {
	if err := r.Register(dest); err != nil {
		panic(err)
	}
}

// Get retrieves a destination by provider key. An unknown key is a
// configuration error for the caller, not a crash.
func (r *Registry) Get(key string) (Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dest, ok := r.destinations[key]
	if !ok {
		return nil, fmt.Errorf("destination: destination %q not found", key)
	}
	return dest, nil
}

// List returns the registered provider keys sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.destinations))
	for key := range r.destinations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether a destination is registered for the key.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.destinations[key]
	return ok
}
