package internaldefs

import (
	shopAuth "github.com/MrEthical07/shopAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   shopAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   shopAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter exported by the Prometheus and OTel bindings.
var CounterDefs = []CounterDef{
	{ID: shopAuth.MetricOTPSent, Name: "shopauth_otp_sent_total", Help: "OTP sessions created and handed to the notifier."},
	{ID: shopAuth.MetricOTPDeliveryFailed, Name: "shopauth_otp_delivery_failed_total", Help: "OTP messages the notifier failed to deliver."},
	{ID: shopAuth.MetricOTPSendRateLimited, Name: "shopauth_otp_send_rate_limited_total", Help: "OTP sends refused by the per-phone throttle."},
	{ID: shopAuth.MetricOTPVerifySuccess, Name: "shopauth_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: shopAuth.MetricOTPVerifyInvalid, Name: "shopauth_otp_verify_invalid_total", Help: "Wrong OTP guesses under the attempt budget."},
	{ID: shopAuth.MetricOTPVerifyExpired, Name: "shopauth_otp_verify_expired_total", Help: "Correct OTPs presented after expiry."},
	{ID: shopAuth.MetricOTPVerifyLocked, Name: "shopauth_otp_verify_locked_total", Help: "OTP verifications rejected by the attempt budget."},
	{ID: shopAuth.MetricOTPSessionNotFound, Name: "shopauth_otp_session_not_found_total", Help: "OTP verifications against unknown sessions."},
	{ID: shopAuth.MetricEmailProbe, Name: "shopauth_email_probe_total", Help: "Login email-step lookups."},
	{ID: shopAuth.MetricLoginSuccess, Name: "shopauth_login_success_total", Help: "Successful password logins."},
	{ID: shopAuth.MetricLoginFailure, Name: "shopauth_login_failure_total", Help: "Failed password logins."},
	{ID: shopAuth.MetricRegisterSuccess, Name: "shopauth_register_success_total", Help: "Accounts registered."},
	{ID: shopAuth.MetricRegisterDuplicate, Name: "shopauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: shopAuth.MetricTokenIssued, Name: "shopauth_token_issued_total", Help: "Auth tokens issued."},
	{ID: shopAuth.MetricTokenValid, Name: "shopauth_token_valid_total", Help: "Auth tokens resolved to an account."},
	{ID: shopAuth.MetricTokenRejected, Name: "shopauth_token_rejected_total", Help: "Auth tokens rejected as unknown, malformed or expired."},
	{ID: shopAuth.MetricGrantIssued, Name: "shopauth_phone_grant_issued_total", Help: "Phone grants minted after OTP verification."},
	{ID: shopAuth.MetricStoreFailure, Name: "shopauth_store_failure_total", Help: "Record store failures surfaced to callers."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: shopAuth.MetricVerifyLatency, Name: "shopauth_otp_verify_latency_seconds", Help: "OTP verification latency."},
}

// HistogramBounds are the upper bounds of the engine latency buckets. The last
// entry is the overflow bucket.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, overflow included, for exporters
// without native histogram support.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling
// missing entries.
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
