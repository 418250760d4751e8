package internaldefs

import (
	blogAuth "github.com/MrEthical07/blogAuth"
	internalmetrics "github.com/MrEthical07/blogAuth/internal/metrics"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   blogAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   blogAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: blogAuth.MetricLoginSuccess, Name: "blogauth_login_success_total", Help: "Successful logins."},
	{ID: blogAuth.MetricLoginFailure, Name: "blogauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: blogAuth.MetricLoginForbidden, Name: "blogauth_login_forbidden_total", Help: "Logins rejected for inactive or unverified accounts."},
	{ID: blogAuth.MetricRefreshSuccess, Name: "blogauth_refresh_success_total", Help: "Successful access token refreshes."},
	{ID: blogAuth.MetricRefreshFailure, Name: "blogauth_refresh_failure_total", Help: "Failed access token refreshes."},
	{ID: blogAuth.MetricRefreshRevoked, Name: "blogauth_refresh_revoked_total", Help: "Refresh attempts with a revoked token."},
	{ID: blogAuth.MetricLogout, Name: "blogauth_logout_total", Help: "Logout operations."},
	{ID: blogAuth.MetricRegistrationSuccess, Name: "blogauth_registration_success_total", Help: "Completed registrations."},
	{ID: blogAuth.MetricRegistrationDuplicate, Name: "blogauth_registration_duplicate_total", Help: "Registrations rejected for a taken username, email or name."},
	{ID: blogAuth.MetricRegistrationRateLimited, Name: "blogauth_registration_rate_limited_total", Help: "Registrations rejected by the IP or email limit."},
	{ID: blogAuth.MetricRegistrationCaptchaRejected, Name: "blogauth_registration_captcha_rejected_total", Help: "Registrations rejected by captcha."},
	{ID: blogAuth.MetricRegistrationInvalid, Name: "blogauth_registration_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: blogAuth.MetricEmailVerificationSent, Name: "blogauth_email_verification_sent_total", Help: "Verification emails handed to the mailer."},
	{ID: blogAuth.MetricEmailVerificationSuccess, Name: "blogauth_email_verification_success_total", Help: "Successful email verifications."},
	{ID: blogAuth.MetricEmailVerificationFailure, Name: "blogauth_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: blogAuth.MetricEmailDeliveryFailure, Name: "blogauth_email_delivery_failure_total", Help: "Verification emails the mailer rejected."},
	{ID: blogAuth.MetricTokenVerifyFailure, Name: "blogauth_token_verify_failure_total", Help: "Access tokens that failed verification."},
	{ID: blogAuth.MetricProfileUpdate, Name: "blogauth_profile_update_total", Help: "Profile updates."},
	{ID: blogAuth.MetricPasswordChange, Name: "blogauth_password_change_total", Help: "Password changes."},
	{ID: blogAuth.MetricAdminActionSuccess, Name: "blogauth_admin_action_success_total", Help: "Admin mutations applied."},
	{ID: blogAuth.MetricAdminActionDenied, Name: "blogauth_admin_action_denied_total", Help: "Admin operations denied by policy."},
	{ID: blogAuth.MetricAccountDisabled, Name: "blogauth_account_disabled_total", Help: "Accounts deactivated by an admin."},
	{ID: blogAuth.MetricAccountDeleted, Name: "blogauth_account_deleted_total", Help: "Accounts deleted by an admin."},
	{ID: blogAuth.MetricRateLimitHit, Name: "blogauth_rate_limit_hit_total", Help: "Rate-limit checks that denied a request."},
	{ID: blogAuth.MetricLoginRateLimited, Name: "blogauth_login_rate_limited_total", Help: "Logins rejected after too many failed attempts."},
	{ID: blogAuth.MetricResendRateLimited, Name: "blogauth_resend_rate_limited_total", Help: "Verification resends rejected by the IP or email limit."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: blogAuth.MetricVerifyLatency, Name: "blogauth_verify_latency_seconds", Help: "Access token verification latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "blogauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// BucketCount is the number of histogram slots including +Inf.
const BucketCount = internalmetrics.HistogramBucketCount

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(internalmetrics.BucketBounds))
	for i, d := range internalmetrics.BucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

// HistogramBoundSuffix names each slot for exporters without native
// histogram buckets.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount slots.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-slot counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
