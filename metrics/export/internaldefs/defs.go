package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// DroppedEventsName is the counter of session events lost to backpressure.
const DroppedEventsName = "gosession_events_dropped_total"

// DroppedEventsHelp describes DroppedEventsName.
const DroppedEventsHelp = "Dropped session events due to dispatcher backpressure."

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Failed registrations."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Token renewals performed."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed token renewals."},
	{ID: goSession.MetricRefreshReuseDetected, Name: "gosession_refresh_reuse_detected_total", Help: "Renewals rejected as refresh token reuse."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricForcedLogout, Name: "gosession_forced_logout_total", Help: "Sessions ended by idle, expiry or failed renewal."},
	{ID: goSession.MetricIdleLogout, Name: "gosession_idle_logout_total", Help: "Sessions ended by inactivity."},
	{ID: goSession.MetricAuthCheck, Name: "gosession_auth_check_total", Help: "Server-side session checks."},
	{ID: goSession.MetricAuthCheckCached, Name: "gosession_auth_check_cached_total", Help: "Session checks answered from the cool-down cache."},
	{ID: goSession.MetricNavigateRender, Name: "gosession_navigate_render_total", Help: "Navigations allowed to render."},
	{ID: goSession.MetricNavigateRedirect, Name: "gosession_navigate_redirect_total", Help: "Navigations redirected."},
	{ID: goSession.MetricDestinationRemembered, Name: "gosession_destination_remembered_total", Help: "Intended destinations recorded."},
	{ID: goSession.MetricDestinationConsumed, Name: "gosession_destination_consumed_total", Help: "Intended destinations consumed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Token renewal latency histogram."},
}

// HistogramBounds are the upper bounds of the eight buckets, as rendered in
// the le label.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
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
