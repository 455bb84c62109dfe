package permission

import (
	"context"
	"errors"

	"github.com/MrEthical07/lockana/errs"
)

// Resolver computes effective permissions for a user's roles.
type Resolver struct {
	adminRole string
	universe  Universe
	catalog   *RoleManager
}

// NewResolver returns a Resolver. catalog may be nil.
func NewResolver(adminRole string, universe Universe, catalog *RoleManager) (*Resolver, error) {
	if adminRole == "" {
		return nil, errors.New("admin role name is required")
	}
	if universe == nil {
		return nil, errors.New("permission universe is required")
	}
	return &Resolver{adminRole: adminRole, universe: universe, catalog: catalog}, nil
}

// AdminRole returns the reserved administrative role name.
func (r *Resolver) AdminRole() string { return r.adminRole }

// IsAdmin reports whether roles include the administrative role.
func (r *Resolver) IsAdmin(roles []Role) bool {
	for _, role := range roles {
		if role.Name == r.adminRole {
			return true
		}
	}
	return false
}

// Effective returns every permission granted by roles. The administrative role
// yields the whole universe; otherwise the result is the union of the roles'
// permissions. A role with no listed permissions falls back to the catalog.
func (r *Resolver) Effective(ctx context.Context, roles []Role) (Set, error) {
	if r.IsAdmin(roles) {
		all, err := r.universe.Permissions(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.KindStorage, err, "")
		}
		return NewSet(all...), nil
	}

	out := make(Set)
	for _, role := range roles {
		if role.Permissions == nil {
			if defined, ok := r.catalog.Lookup(role.Name); ok {
				out.Union(defined)
			}
			continue
		}
		for _, p := range role.Permissions {
			out.Add(p)
		}
	}
	return out, nil
}

// Authorize reports whether roles grant permission. The administrative role is
// granted without consulting the universe.
func (r *Resolver) Authorize(ctx context.Context, roles []Role, permission string) (bool, error) {
	if r.IsAdmin(roles) {
		return true, nil
	}
	set, err := r.Effective(ctx, roles)
	if err != nil {
		return false, err
	}
	return set.Has(permission), nil
}

// PrimaryRole picks the role placed in a session token: the administrative role
// if held, else the first assigned role, else fallback.
func (r *Resolver) PrimaryRole(roles []Role, fallback string) string {
	if r.IsAdmin(roles) {
		return r.adminRole
	}
	for _, role := range roles {
		if role.Name != "" {
			return role.Name
		}
	}
	return fallback
}
