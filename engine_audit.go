package lockana

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/lockana/errs"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginBlocked     = "login_blocked"
	auditEventLogout           = "logout"
	auditEventPermissionDenied = "permission_denied"
	auditEventSecretRotated    = "secret_rotated"
)

// AuditErrorCode is the stable error tag recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	action string,
	username string,
	success bool,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Username:  username,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	}

	switch errs.KindOf(err) {
	case errs.KindAuthentication, errs.KindOTPCode, errs.KindOTPSecret:
		return auditErrInvalidCredentials
	case errs.KindRateLimited:
		return auditErrRateLimited
	case errs.KindInvalidToken:
		return auditErrInvalidToken
	case errs.KindNotFound:
		return auditErrUserNotFound
	case errs.KindPermissionDenied:
		return auditErrPermissionDenied
	case errs.KindStorage:
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
