package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/lockana/errs"
)

// AuthorizeDeps captures permission-check dependencies.
type AuthorizeDeps struct {
	ValidateToken func(ctx context.Context, token string) (subject string, err error)
	FindUser      func(ctx context.Context, username string) (*UserRecord, error)
	IsAdmin       func(roles []Role) bool
	Authorize     func(ctx context.Context, roles []Role, permission string) (bool, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	MetricPermissionDenied int
	EventPermissionDenied  string

	UserNotFound     error
	PermissionDenied error
}

// RunAuthorize resolves the caller behind token and checks permission.
//
// A missing user is a not-found error; the administrative role is allowed without
// a membership test; any other caller lacking permission gets the permission-denied
// error.
func RunAuthorize(ctx context.Context, token, permission string, deps AuthorizeDeps) (*UserRecord, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	subject, err := deps.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := deps.FindUser(ctx, subject)
	if err != nil && !errors.Is(err, deps.UserNotFound) && errs.KindOf(err) != errs.KindNotFound {
		return nil, err
	}
	if user == nil {
		return nil, deps.UserNotFound
	}

	if deps.IsAdmin(user.Roles) {
		return user, nil
	}

	ok, err := deps.Authorize(ctx, user.Roles, permission)
	if err != nil {
		return nil, err
	}
	if !ok {
		deps.MetricInc(deps.MetricPermissionDenied)
		deps.EmitAudit(ctx, deps.EventPermissionDenied, subject, false, deps.PermissionDenied,
			map[string]string{"permission": permission})
		return nil, deps.PermissionDenied
	}
	return user, nil
}
