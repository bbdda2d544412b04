package modules

import (
	"sort"
	"sync"
)

// Registry maps module identifiers to materialized modules. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// DefaultRegistry is the process-wide registry used by loaders that are not
// given one.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Register stores m unless another module already holds its name, and
// returns whichever module is registered afterwards.
func (r *Registry) Register(m *Module) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.modules[m.Name]; ok {
		return existing
	}
	r.modules[m.Name] = m
	return m
}

// Forget drops name so the next load materializes it again.
func (r *Registry) Forget(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.modules[name]
	delete(r.modules, name)
	return ok
}

// Names returns the registered identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
