package schema

import "sync"

// Registry holds the active structure for each questionnaire type.
// Reloaded wholesale after admin mutations.
type Registry struct {
	mu         sync.RWMutex
	structures map[string]*Structure // keyed by type tag
}

func NewRegistry() *Registry {
	return &Registry{structures: make(map[string]*Structure)}
}

// Get returns the active structure for the given type tag, or nil.
func (r *Registry) Get(typeTag string) *Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.structures[typeTag]
}

// All returns all registered structures.
func (r *Registry) All() []*Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Structure, 0, len(r.structures))
	for _, s := range r.structures {
		out = append(out, s)
	}
	return out
}

// Load replaces all structures in the registry. Exactly one structure per
// type is expected; a later duplicate overwrites an earlier one.
func (r *Registry) Load(structures []*Structure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structures = make(map[string]*Structure, len(structures))
	for _, s := range structures {
		r.structures[s.Type] = s
	}
}
