// Package providers holds HTTP clients for the external services the identity
// core calls: CAPTCHA verification, email validity checks and transactional
// email delivery.
//
// Each client implements a small interface ([CaptchaVerifier], [EmailChecker],
// [Mailer]) so the Engine can be wired with stubs in tests. Clients never log
// API keys or tokens.
package providers
