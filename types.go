package lockana

import (
	"context"
	"time"

	"github.com/MrEthical07/lockana/permission"
)

// Role is a named permission set assigned to a user. A nil Permissions slice means
// the role's permissions come from the configured role catalog.
type Role = permission.Role

// User is the record returned by [UserProvider]. Roles is a set; a user with no
// roles receives the configured default role in issued tokens.
type User struct {
	Username string
	// Secret is the base32 one-time-code secret. It is never logged.
	Secret string
	Roles  []Role
}

// RoleNames returns the names of u's roles in assignment order.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// UserProvider is the user lookup collaborator. FindByUsername must return an error
// of kind errs.KindNotFound (for example [ErrUserNotFound]) when the user does not
// exist, so the Engine can tell a missing user from a storage failure.
type UserProvider interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdateSecret(ctx context.Context, username, secret string) error
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Username    string
	Role        string
}

// AuthResult is returned by [Engine.Validate].
type AuthResult struct {
	Username  string
	Role      string
	ExpiresAt time.Time
}

// SecretProvision is returned by [Engine.RotateSecret]. URI is the otpauth:// link
// for authenticator apps.
type SecretProvision struct {
	Secret string
	URI    string
}
