package internaldefs

import (
	"github.com/MrEthical07/lockana"
)

// CounterDef names one Engine counter for exporters.
type CounterDef struct {
	ID   lockana.MetricID
	Name string
	Help string
}

// HistogramDef names one Engine histogram for exporters.
type HistogramDef struct {
	ID   lockana.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dropped audit events.
const (
	AuditDroppedName = "lockana_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: lockana.MetricLoginSuccess, Name: "lockana_login_success_total", Help: "Logins that issued a token."},
	{ID: lockana.MetricLoginFailure, Name: "lockana_login_failure_total", Help: "Rejected logins, unknown users included."},
	{ID: lockana.MetricLoginBlocked, Name: "lockana_login_blocked_total", Help: "Logins refused by an active block."},
	{ID: lockana.MetricBlockCreated, Name: "lockana_block_created_total", Help: "Failures that placed a username or address under a block."},
	{ID: lockana.MetricOTPReplay, Name: "lockana_otp_replay_total", Help: "Valid one-time codes rejected as replays."},
	{ID: lockana.MetricOTPFormatError, Name: "lockana_otp_format_error_total", Help: "Stored secrets rejected as unusable."},
	{ID: lockana.MetricLogout, Name: "lockana_logout_total", Help: "Revoked tokens."},
	{ID: lockana.MetricTokenRejected, Name: "lockana_token_rejected_total", Help: "Tokens failing signature, expiry or role checks."},
	{ID: lockana.MetricTokenRevokedRejected, Name: "lockana_token_revoked_rejected_total", Help: "Presented tokens found in the revocation set."},
	{ID: lockana.MetricPermissionDenied, Name: "lockana_permission_denied_total", Help: "Authorization failures."},
	{ID: lockana.MetricSecretRotated, Name: "lockana_secret_rotated_total", Help: "One-time-code secret rotations."},
	{ID: lockana.MetricRevocationsSwept, Name: "lockana_revocations_swept_total", Help: "Expired revocations removed by the sweeper."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: lockana.MetricValidateLatency, Name: "lockana_validate_latency_seconds", Help: "Token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last Engine
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without
// native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
