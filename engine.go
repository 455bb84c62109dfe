package lockana

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/lockana/cipher"
	"github.com/MrEthical07/lockana/errs"
	internalaudit "github.com/MrEthical07/lockana/internal/audit"
	"github.com/MrEthical07/lockana/internal/flows"
	"github.com/MrEthical07/lockana/internal/guard"
	"github.com/MrEthical07/lockana/permission"
	"github.com/MrEthical07/lockana/store"
	"github.com/MrEthical07/lockana/token"
	"github.com/MrEthical07/lockana/totp"
)

// Engine is the authentication and authorization core. It is safe for concurrent
// use; configuration and key material are read-only after Build.
type Engine struct {
	config       Config
	store        store.Store
	guard        *guard.Guard
	sweeper      *guard.Sweeper
	otp          *totp.Manager
	tokens       *token.Service
	resolver     *permission.Resolver
	suite        cipher.Suite
	cipherKey    []byte
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	flows        flows.Deps
}

// Close stops the revocation sweeper and drains the audit dispatcher. It is safe
// to call on a nil Engine and more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.sweeper.Close()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping reports whether the counter store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Validate describes the validate operation and its observable behavior.
//
// Validate checks the revocation set first and fails closed when it cannot be read,
// then verifies signature and expiry, then requires the token role to equal
// requiredRole or be the administrative role. An empty requiredRole accepts any
// role. Revoked tokens fail with [ErrTokenRevoked]; every other rejection is
// [ErrUnauthorized].
func (e *Engine) Validate(ctx context.Context, tokenStr, requiredRole string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.tokens.Validate(ctx, tokenStr, requiredRole)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			e.metricInc(MetricTokenRevokedRejected)
		} else {
			e.metricInc(MetricTokenRejected)
		}
		return nil, err
	}

	res := &AuthResult{
		Username: claims.Subject,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res, nil
}

// CurrentUser validates tokenStr and loads the user it names. A subject that no
// longer exists yields [ErrUserNotFound].
func (e *Engine) CurrentUser(ctx context.Context, tokenStr string) (*User, error) {
	res, err := e.Validate(ctx, tokenStr, "")
	if err != nil {
		return nil, err
	}
	return e.findUser(ctx, res.Username)
}

// Logout describes the logout operation and its observable behavior.
//
// Logout adds tokenStr to the revocation set until the token's own expiry. Tokens
// that fail signature verification are rejected with [ErrUnauthorized]. Logging
// out an already expired token succeeds without storing anything.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, tokenStr, e.flows.Logout)
}

// IsBlocked reports whether username or addr is currently blocked.
func (e *Engine) IsBlocked(ctx context.Context, username, addr string) (bool, error) {
	if e == nil || e.guard == nil {
		return false, ErrEngineNotReady
	}
	err := e.guard.Check(ctx, username, addr)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrLoginBlocked):
		return true, nil
	default:
		return false, err
	}
}

// Unblock lifts blocks and clears failure counters for username and addr.
func (e *Engine) Unblock(ctx context.Context, username, addr string) error {
	if e == nil || e.guard == nil {
		return ErrEngineNotReady
	}
	return e.guard.Unblock(ctx, username, addr)
}

// Encrypt encrypts plaintext under the configured cipher and key.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	if e == nil || e.suite == nil {
		return "", ErrEngineNotReady
	}
	return e.suite.Encrypt(plaintext, e.cipherKey)
}

// Decrypt reverses [Engine.Encrypt]. Malformed input fails with an
// errs.KindCrypto error.
func (e *Engine) Decrypt(ciphertext string) (string, error) {
	if e == nil || e.suite == nil {
		return "", ErrEngineNotReady
	}
	return e.suite.Decrypt(ciphertext, e.cipherKey)
}

// CipherName returns the canonical name of the configured cipher.
func (e *Engine) CipherName() string {
	if e == nil || e.suite == nil {
		return ""
	}
	return e.suite.Name()
}

func (e *Engine) findUser(ctx context.Context, username string) (*User, error) {
	user, err := e.userProvider.FindByUsername(ctx, username)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, ErrUserNotFound
		}
		return nil, errs.Wrap(errs.KindStorage, err, "")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
