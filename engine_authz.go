package lockana

import (
	"context"

	"github.com/MrEthical07/lockana/internal/flows"
)

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize validates tokenStr, loads the user it names and checks that the user's
// roles grant permission. A missing user yields [ErrUserNotFound]; the
// administrative role is allowed without a membership test; any other caller
// without the permission gets [ErrPermissionDenied].
func (e *Engine) Authorize(ctx context.Context, tokenStr, permission string) (*User, error) {
	if e == nil || e.resolver == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := flows.RunAuthorize(ctx, tokenStr, permission, e.flows.Authorize)
	if err != nil {
		return nil, err
	}
	return &User{Username: rec.Username, Secret: rec.Secret, Roles: rec.Roles}, nil
}

// EffectivePermissions returns the sorted permission names granted to user. The
// administrative role yields every known permission.
func (e *Engine) EffectivePermissions(ctx context.Context, user *User) ([]string, error) {
	if e == nil || e.resolver == nil {
		return nil, ErrEngineNotReady
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	set, err := e.resolver.Effective(ctx, user.Roles)
	if err != nil {
		return nil, err
	}
	return set.Names(), nil
}

// HasPermission reports whether user's roles grant permission.
func (e *Engine) HasPermission(ctx context.Context, user *User, permission string) (bool, error) {
	if e == nil || e.resolver == nil {
		return false, ErrEngineNotReady
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	return e.resolver.Authorize(ctx, user.Roles, permission)
}

// AdminRole returns the configured administrative role name.
func (e *Engine) AdminRole() string {
	if e == nil || e.resolver == nil {
		return ""
	}
	return e.resolver.AdminRole()
}

// Operation is a protected action run on behalf of an authorized user.
type Operation[T any] func(ctx context.Context, user *User) (T, error)

// RequirePermission wraps op so that it only runs after [Engine.Authorize] accepts
// the presented token for permission. The returned function reports the
// authorization error unchanged and never calls op in that case.
func RequirePermission[T any](e *Engine, permission string, op Operation[T]) func(ctx context.Context, token string) (T, error) {
	return func(ctx context.Context, token string) (T, error) {
		var zero T
		user, err := e.Authorize(ctx, token, permission)
		if err != nil {
			return zero, err
		}
		return op(ctx, user)
	}
}
