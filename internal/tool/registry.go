package tool

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is the closed set of tools offered to the assistant. Lookup is
// case-insensitive; specs keep registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns a registry seeded with tools. It fails on a duplicate or unnamed tool.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t under its lower-cased name.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	key := normalize(t.Spec().Name)
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", key)
	}
	r.tools[key] = t
	r.order = append(r.order, key)
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[normalize(name)]
	return t, ok
}

// Specs returns the tool specs in registration order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.order))
	for _, key := range r.order {
		specs = append(specs, r.tools[key].Spec())
	}
	return specs
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
