// Package limiters holds the fixed-window rate limiters guarding
// registration, login and verification email resends.
//
// Counters live in the shared key-value directory:
//
//   - register_limit:{ip} and register_email_limit:{email} for sign-ups.
//   - login_fail:{username} and login_fail_ip:{ip} for failed logins.
//   - resend_verify_limit:{email} and resend_verify_ip_limit:{ip} for resends.
//
// Each hit is an atomic increment whose window starts on the first hit, so
// concurrent attempts cannot overshoot the configured bound. A nil limiter
// allows everything.
package limiters
