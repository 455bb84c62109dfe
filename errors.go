package lockana

import (
	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/internal/guard"
	"github.com/MrEthical07/lockana/store"
	"github.com/MrEthical07/lockana/token"
	"github.com/MrEthical07/lockana/totp"
)

var (
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errs.New(errs.KindInternal, "engine not initialized")
	// ErrInvalidCredentials is the single answer to every failed login, including an
	// unknown username.
	ErrInvalidCredentials = errs.New(errs.KindAuthentication, "invalid username or one-time code")
	// ErrUnauthorized is returned for tokens that are malformed, expired, badly signed,
	// or carry an insufficient role.
	ErrUnauthorized = token.ErrInvalid
	// ErrTokenRevoked is returned for tokens that were logged out.
	ErrTokenRevoked = token.ErrRevoked
	// ErrLoginBlocked is returned while the username or origin address is blocked.
	ErrLoginBlocked = guard.ErrBlocked
	// ErrUserNotFound is returned when a token subject no longer resolves to a user.
	ErrUserNotFound = errs.New(errs.KindNotFound, "user not found")
	// ErrPermissionDenied is returned when the caller lacks the required permission.
	ErrPermissionDenied = errs.New(errs.KindPermissionDenied, "permission denied")
	// ErrStoreUnavailable is returned when the counter store cannot be reached.
	ErrStoreUnavailable = store.ErrUnavailable
	// ErrSecretTooShort is returned for one-time-code secrets below the configured minimum.
	ErrSecretTooShort = totp.ErrSecretTooShort
	// ErrCodeFormat is returned for codes of the wrong length.
	ErrCodeFormat = totp.ErrCodeLength
	// ErrInvalidUsername is returned for empty usernames.
	ErrInvalidUsername = errs.New(errs.KindValidation, "username is required")
)
