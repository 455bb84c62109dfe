package permission

import (
	"errors"
	"fmt"
	"sync"
)

// RoleManager holds role definitions checked against a Registry.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Set
	frozen bool
}

// NewRoleManager returns an empty catalog bound to registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Set),
	}
}

// RegisterRole defines roleName with the given permissions. Every permission must
// already be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	set := make(Set, len(permissionNames))
	for _, p := range permissionNames {
		if rm.registry != nil && !rm.registry.Has(p) {
			return fmt.Errorf("role %q references unknown permission %q", roleName, p)
		}
		set.Add(p)
	}
	rm.roles[roleName] = set
	return nil
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Lookup returns a copy of the permissions defined for roleName.
func (rm *RoleManager) Lookup(roleName string) (Set, bool) {
	if rm == nil {
		return nil, false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	set, ok := rm.roles[roleName]
	if !ok {
		return nil, false
	}
	return set.Clone(), true
}
