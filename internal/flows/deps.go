package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/lockana/permission"
)

// Deps groups flow dependency sets. The Engine builds this once.
type Deps struct {
	Login     LoginDeps
	Logout    LogoutDeps
	Authorize AuthorizeDeps
}

// Role is a named permission set as assigned to a user.
type Role = permission.Role

// UserRecord is the flow-local user shape.
type UserRecord struct {
	Username string
	Secret   string
	Roles    []Role
}

// AuditFunc emits an audit event for action.
type AuditFunc func(ctx context.Context, action, username string, success bool, err error, meta map[string]string)

func noopAudit(context.Context, string, string, bool, error, map[string]string) {}

func nowOr(f func() time.Time) func() time.Time {
	if f == nil {
		return time.Now
	}
	return f
}
