package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/lockana/errs"
)

// LoginResult is the flow-local login response.
type LoginResult struct {
	Username    string
	Role        string
	AccessToken string
	ExpiresAt   time.Time
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess   int
	LoginFailure   int
	LoginBlocked   int
	BlockCreated   int
	OTPReplay      int
	OTPFormatError int
}

// LoginEvents carries audit action tags used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
	LoginBlocked string
}

// LoginErrors carries host-level sentinel errors.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	UserNotFound       error
}

// FailureOutcome is what recording a failed attempt did.
type FailureOutcome struct {
	UserBlocked bool
	AddrBlocked bool
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	EnforceReplayProtection bool
	DefaultRole             string

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckBlocked   func(ctx context.Context, username, addr string) error
	RecordFailure  func(ctx context.Context, username, addr string) (FailureOutcome, error)
	RecordSuccess  func(ctx context.Context, username, addr string) error
	FindUser       func(ctx context.Context, username string) (*UserRecord, error)
	MatchCode      func(code, secret string, t time.Time) (int64, bool, error)
	ConsumeStep    func(ctx context.Context, username string, step int64) (bool, error)
	PrimaryRole    func(roles []Role, fallback string) string
	IssueToken     func(subject, role string) (string, time.Time, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)
	Error     func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates username with a one-time code.
//
// Order: block check (no user data touched while blocked), user lookup, code
// verification, optional replay check, then success bookkeeping and token
// issuance. Every credential failure, including an unknown user, is counted and
// reported as the same generic error.
func RunLogin(ctx context.Context, username, code string, deps LoginDeps) (*LoginResult, error) {
	deps.Now = nowOr(deps.Now)
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.Error == nil {
		deps.Error = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckBlocked == nil ||
		deps.RecordFailure == nil ||
		deps.RecordSuccess == nil ||
		deps.FindUser == nil ||
		deps.MatchCode == nil ||
		deps.IssueToken == nil ||
		deps.PrimaryRole == nil {
		return nil, deps.Errors.EngineNotReady
	}

	addr := deps.ClientIPFromContext(ctx)

	if err := deps.CheckBlocked(ctx, username, addr); err != nil {
		if errs.KindOf(err) == errs.KindRateLimited {
			deps.MetricInc(deps.Metrics.LoginBlocked)
			deps.EmitAudit(ctx, deps.Events.LoginBlocked, username, false, err, nil)
		} else {
			deps.Error("lockana: block check failed", "error", err)
		}
		return nil, err
	}

	fail := func(reason string) (*LoginResult, error) {
		outcome, err := deps.RecordFailure(ctx, username, addr)
		if err != nil {
			deps.Error("lockana: recording failed attempt", "error", err)
		}
		if outcome.UserBlocked || outcome.AddrBlocked {
			deps.MetricInc(deps.Metrics.BlockCreated)
			deps.Warn("lockana: login blocked", "username", username, "ip", addr,
				"user_blocked", outcome.UserBlocked, "ip_blocked", outcome.AddrBlocked)
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, username, false, deps.Errors.InvalidCredentials,
			map[string]string{"reason": reason})
		return nil, deps.Errors.InvalidCredentials
	}

	user, err := deps.FindUser(ctx, username)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) && errs.KindOf(err) != errs.KindNotFound {
			deps.Error("lockana: user lookup failed", "error", err)
			return nil, err
		}
		user = nil
	}
	if user == nil {
		return fail("user_not_found")
	}

	now := deps.Now()
	step, ok, err := deps.MatchCode(code, user.Secret, now)
	if err != nil {
		switch errs.KindOf(err) {
		case errs.KindOTPSecret:
			deps.MetricInc(deps.Metrics.OTPFormatError)
			deps.Error("lockana: stored one-time-code secret is unusable", "username", username, "error", err)
			return fail("secret_format")
		case errs.KindOTPCode:
			return fail("code_format")
		default:
			return nil, err
		}
	}
	if !ok {
		return fail("code_mismatch")
	}

	if deps.EnforceReplayProtection && deps.ConsumeStep != nil {
		fresh, err := deps.ConsumeStep(ctx, username, step)
		if err != nil {
			return nil, err
		}
		if !fresh {
			deps.MetricInc(deps.Metrics.OTPReplay)
			return fail("code_replay")
		}
	}

	if err := deps.RecordSuccess(ctx, username, addr); err != nil {
		deps.Warn("lockana: clearing failed attempts", "error", err)
	}

	role := deps.PrimaryRole(user.Roles, deps.DefaultRole)
	tok, expiresAt, err := deps.IssueToken(user.Username, role)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, username, true, nil,
		map[string]string{"role": role, "step": strconv.FormatInt(step, 10)})

	return &LoginResult{
		Username:    user.Username,
		Role:        role,
		AccessToken: tok,
		ExpiresAt:   expiresAt,
	}, nil
}
