package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/lockana"
)

// RequireRole validates the bearer token and requires requiredRole, or any role when
// requiredRole is empty. The admin role satisfies every requirement.
func RequireRole(engine *lockana.Engine, requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, lockana.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				WriteError(w, lockana.ErrUnauthorized)
				return
			}

			res, err := engine.Validate(r.Context(), token, requiredRole)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission validates the bearer token, loads the user and requires
// permission among their effective permissions.
func RequirePermission(engine *lockana.Engine, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, lockana.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				WriteError(w, lockana.ErrUnauthorized)
				return
			}

			user, err := engine.Authorize(r.Context(), token, permission)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
