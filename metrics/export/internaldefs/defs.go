package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// Refresh gauges, exported only for sources implementing [RefreshState].
const (
	RefreshInFlightName = "gosession_refresh_in_flight"
	RefreshInFlightHelp = "1 while a token refresh is in flight."
	RefreshWaitersName  = "gosession_refresh_waiters"
	RefreshWaitersHelp  = "Requests parked behind the in-flight refresh."
)

// RefreshState reports whether a refresh is running and how many requests
// wait on it. *goSession.Client implements it.
type RefreshState interface {
	Refreshing() (bool, int)
}

// RefreshGauges reads src when it implements [RefreshState].
func RefreshGauges(src any) (inFlight, waiters int64, ok bool) {
	rs, ok := src.(RefreshState)
	if !ok {
		return 0, 0, false
	}
	running, n := rs.Refreshing()
	if running {
		inFlight = 1
	}
	return inFlight, int64(n), true
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful sign-ins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed sign-in attempts."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Failed registrations."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Sign-outs."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Access tokens renewed."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed token renewals."},
	{ID: goSession.MetricRefreshQueued, Name: "gosession_refresh_queued_total", Help: "Requests parked behind an in-flight refresh."},
	{ID: goSession.MetricRequestRetried, Name: "gosession_request_retried_total", Help: "Requests re-sent after a 401."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Forced sign-outs after a failed refresh."},
	{ID: goSession.MetricCredentialsCleared, Name: "gosession_credentials_cleared_total", Help: "Times held credentials were discarded."},
	{ID: goSession.MetricCorruptCredentials, Name: "gosession_corrupt_credentials_total", Help: "Persisted token pairs found incomplete."},
	{ID: goSession.MetricInitSuccess, Name: "gosession_init_success_total", Help: "Start-up validations that ended authenticated."},
	{ID: goSession.MetricInitFailure, Name: "gosession_init_failure_total", Help: "Start-up validations that did not end authenticated."},
	{ID: goSession.MetricNetworkError, Name: "gosession_network_error_total", Help: "Transitions into offline mode."},
	{ID: goSession.MetricPermissionLoadSuccess, Name: "gosession_permission_load_success_total", Help: "Permission snapshots loaded."},
	{ID: goSession.MetricPermissionLoadFailure, Name: "gosession_permission_load_failure_total", Help: "Failed permission loads."},
	{ID: goSession.MetricNavigationDenied, Name: "gosession_navigation_denied_total", Help: "Navigations redirected by the route guard."},
	{ID: goSession.MetricRequests, Name: "gosession_requests_total", Help: "Backend round trips."},
	{ID: goSession.MetricRequestErrors, Name: "gosession_request_errors_total", Help: "Backend round trips without a 2xx answer."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRequestLatency, Name: "gosession_request_latency_seconds", Help: "Backend round-trip latency."},
}

// UpperBounds are the finite bucket bounds in seconds. The last bucket is
// +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BoundSuffix names each bucket, +Inf included, for instrument names.
var BoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
