package permission

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Universe supplies every permission that exists. The administrative role is
// granted all of them.
type Universe interface {
	Permissions(ctx context.Context) ([]string, error)
}

// Registry is a static Universe built at startup.
type Registry struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	order  []string
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a permission name. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("permission name cannot be empty")
	}
	if _, exists := r.names[name]; exists {
		return errors.New("permission already registered")
	}

	r.names[name] = struct{}{}
	r.order = append(r.order, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Permissions returns the registered names in registration order.
func (r *Registry) Permissions(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out, nil
}
