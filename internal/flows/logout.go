package flows

import "context"

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Revoke    func(ctx context.Context, token string) (subject string, err error)
	MetricInc func(int)
	EmitAudit AuditFunc

	MetricLogout int
	EventLogout  string
}

// RunLogout revokes token until its natural expiry.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	subject, err := deps.Revoke(ctx, token)
	if err != nil {
		return err
	}
	deps.MetricInc(deps.MetricLogout)
	deps.EmitAudit(ctx, deps.EventLogout, subject, true, nil, nil)
	return nil
}
