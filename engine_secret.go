package lockana

import (
	"context"
	"time"

	"github.com/MrEthical07/lockana/errs"
)

// CreateSecret returns a fresh base32 one-time-code secret.
func (e *Engine) CreateSecret() (string, error) {
	if e == nil || e.otp == nil {
		return "", ErrEngineNotReady
	}
	return e.otp.CreateSecret()
}

// VerifyCode checks code against secret at the current time. It does not touch
// attempt counters; use [Engine.Login] for user authentication.
func (e *Engine) VerifyCode(code, secret string) (bool, error) {
	if e == nil || e.otp == nil {
		return false, ErrEngineNotReady
	}
	return e.otp.VerifyAt(code, secret, e.now())
}

// GenerateCode returns the code for secret at t.
func (e *Engine) GenerateCode(secret string, t time.Time) (string, error) {
	if e == nil || e.otp == nil {
		return "", ErrEngineNotReady
	}
	return e.otp.GenerateCode(secret, t)
}

// ProvisionURI returns the otpauth:// URI for username's secret.
func (e *Engine) ProvisionURI(username, secret string) (string, error) {
	if e == nil || e.otp == nil {
		return "", ErrEngineNotReady
	}
	return e.otp.ProvisionURI(secret, username)
}

// RotateSecret replaces username's one-time-code secret and returns the new
// secret with its provisioning URI.
func (e *Engine) RotateSecret(ctx context.Context, username string) (*SecretProvision, error) {
	if e == nil || e.otp == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	secret, err := e.otp.CreateSecret()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "")
	}
	uri, err := e.otp.ProvisionURI(secret, user.Username)
	if err != nil {
		return nil, err
	}
	if err := e.userProvider.UpdateSecret(ctx, user.Username, secret); err != nil {
		e.emitAudit(ctx, auditEventSecretRotated, user.Username, false, err, nil)
		return nil, errs.Wrap(errs.KindStorage, err, "")
	}

	e.metricInc(MetricSecretRotated)
	e.emitAudit(ctx, auditEventSecretRotated, user.Username, true, nil, nil)
	e.logger.Info("lockana: one-time-code secret rotated", "username", user.Username)

	return &SecretProvision{Secret: secret, URI: uri}, nil
}
