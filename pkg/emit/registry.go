package emit

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores emitters by target, providing discovery and duplication
// safeguards.
type Registry struct {
	mu       sync.RWMutex
	emitters map[string]Emitter
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		emitters: make(map[string]Emitter),
	}
}

// Register adds an emitter by its Target(). Duplicate targets return an error.
func (r *Registry) Register(emitter Emitter) error {
	if emitter == nil {
		return fmt.Errorf("emit: emitter is required")
	}
	target := emitter.Target()
	if target == "" {
		return fmt.Errorf("emit: emitter target is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.emitters[target]; exists {
		return fmt.Errorf("emit: emitter %q already registered", target)
	}
	r.emitters[target] = emitter
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(emitter Emitter) {
	if err := r.Register(emitter); err != nil {
		panic(err)
	}
}

// Get retrieves an emitter by target.
func (r *Registry) Get(target string) (Emitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emitter, ok := r.emitters[target]
	if !ok {
		return nil, fmt.Errorf("emit: emitter %q not found", target)
	}
	return emitter, nil
}

// List returns the sorted registered targets.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.emitters))
	for name := range r.emitters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an emitter is registered for target.
func (r *Registry) Has(target string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.emitters[target]
	return ok
}
