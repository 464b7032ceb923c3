package mission

import (
	"fmt"
)

// Factory returns a zero mission of one kind, ready for LoadData.
type Factory func() Mission

// Registry maps stable type names to factories. It replaces looking types up
// by name at runtime: a save can only resurrect kinds registered here.
type Registry struct {
	factories map[string]Factory
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(TypeStandard, func() Mission { return &StandardMission{} })
	r.MustRegister(TypeTimed, func() Mission { return &TimedMission{} })
	r.MustRegister(TypeCollect, func() Mission { return &CollectMission{} })
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("mission: empty type name")
	}
	if f == nil {
		return fmt.Errorf("mission: nil factory for %q", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("mission: type %q already registered", name)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for startup wiring; it panics on conflicts.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// New instantiates a registered kind.
func (r *Registry) New(name string) (Mission, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names lists registered kinds in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
