package middleware

import (
	"context"

	"github.com/MrEthical07/lockana"
)

type authResultContextKey struct{}

type userContextKey struct{}

// AuthResultFromContext returns the result stored by [RequireRole].
func AuthResultFromContext(ctx context.Context) (*lockana.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*lockana.AuthResult)
	return res, ok
}

// UserFromContext returns the user stored by [RequirePermission].
func UserFromContext(ctx context.Context) (*lockana.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*lockana.User)
	return u, ok
}
