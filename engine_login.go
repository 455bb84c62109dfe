package lockana

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/lockana/internal/flows"
)

func (e *Engine) initFlows() {
	e.flows = flows.Deps{
		Login: flows.LoginDeps{
			EnforceReplayProtection: e.config.TOTP.EnforceReplayProtection,
			DefaultRole:             e.config.Permission.DefaultRole,
			ClientIPFromContext:     clientIPFromContext,
			Now:                     e.now,
			CheckBlocked:            e.guard.Check,
			RecordFailure: func(ctx context.Context, username, addr string) (flows.FailureOutcome, error) {
				out, err := e.guard.RecordFailure(ctx, username, addr)
				return flows.FailureOutcome{UserBlocked: out.UserBlocked, AddrBlocked: out.AddrBlocked}, err
			},
			RecordSuccess: e.guard.RecordSuccess,
			FindUser:      e.findUserRecord,
			MatchCode:     e.otp.Match,
			ConsumeStep:   e.consumeStep,
			PrimaryRole:   e.resolver.PrimaryRole,
			IssueToken: func(subject, role string) (string, time.Time, error) {
				return e.tokens.Issue(subject, role, 0)
			},
			MetricInc: func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit: e.emitAudit,
			Warn:      e.logger.Warn,
			Error:     e.logger.Error,
			Metrics: flows.LoginMetrics{
				LoginSuccess:   int(MetricLoginSuccess),
				LoginFailure:   int(MetricLoginFailure),
				LoginBlocked:   int(MetricLoginBlocked),
				BlockCreated:   int(MetricBlockCreated),
				OTPReplay:      int(MetricOTPReplay),
				OTPFormatError: int(MetricOTPFormatError),
			},
			Events: flows.LoginEvents{
				LoginSuccess: auditEventLoginSuccess,
				LoginFailure: auditEventLoginFailure,
				LoginBlocked: auditEventLoginBlocked,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				UserNotFound:       ErrUserNotFound,
			},
		},
		Logout: flows.LogoutDeps{
			Revoke: func(ctx context.Context, tok string) (string, error) {
				claims, err := e.tokens.Revoke(ctx, tok)
				if err != nil {
					return "", err
				}
				return claims.Subject, nil
			},
			MetricInc:    func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:    e.emitAudit,
			MetricLogout: int(MetricLogout),
			EventLogout:  auditEventLogout,
		},
		Authorize: flows.AuthorizeDeps{
			ValidateToken: func(ctx context.Context, tok string) (string, error) {
				res, err := e.Validate(ctx, tok, "")
				if err != nil {
					return "", err
				}
				return res.Username, nil
			},
			FindUser:               e.findUserRecord,
			IsAdmin:                e.resolver.IsAdmin,
			Authorize:              e.resolver.Authorize,
			MetricInc:              func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:              e.emitAudit,
			MetricPermissionDenied: int(MetricPermissionDenied),
			EventPermissionDenied:  auditEventPermissionDenied,
			UserNotFound:           ErrUserNotFound,
			PermissionDenied:       ErrPermissionDenied,
		},
	}
}

// Login describes the login operation and its observable behavior.
//
// Login refuses blocked usernames and origin addresses (see [WithClientIP]) before
// touching any user data. An unknown user, a malformed code and a wrong code all
// count as a failed attempt and return [ErrInvalidCredentials]; the failure that
// reaches the configured maximum places a block. A successful login clears both
// failure counters and returns a signed token whose role is the administrative
// role if held, else the first assigned role, else the default role.
func (e *Engine) Login(ctx context.Context, username, code string) (*LoginResult, error) {
	if e == nil || e.guard == nil {
		return nil, ErrEngineNotReady
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	res, err := flows.RunLogin(ctx, username, strings.TrimSpace(code), e.flows.Login)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		Username:    res.Username,
		Role:        res.Role,
	}, nil
}

// consumeStep marks the code step as used for username. It reports false if the
// step was already consumed.
func (e *Engine) consumeStep(ctx context.Context, username string, step int64) (bool, error) {
	return e.store.SetIfAbsent(ctx, "otp_used:"+username+":"+strconv.FormatInt(step, 10), e.otp.StepDuration())
}

func (e *Engine) findUserRecord(ctx context.Context, username string) (*flows.UserRecord, error) {
	user, err := e.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &flows.UserRecord{
		Username: user.Username,
		Secret:   user.Secret,
		Roles:    user.Roles,
	}, nil
}
