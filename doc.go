// Package blogAuth is the identity and session core of the blog platform:
// JWT access and refresh tokens, a key-value backed user directory with
// unique usernames, emails and display names, email verification with
// single-use tokens, registration rate limiting, and the admin authorization
// policy with its super-admin carve-out.
//
// [Engine] is the public surface. It is built once through [Builder] and is
// safe for concurrent use. HTTP routing lives in the httpapi package; the
// bearer guard lives in middleware.
//
// # Errors
//
// Every error returned by an Engine method matches exactly one kind sentinel
// with errors.Is: [ErrValidation], [ErrUnauthorized], [ErrForbidden],
// [ErrNotFound], [ErrConflict], [ErrTooManyRequests] or [ErrUnavailable].
// The message of a kind-matched error is safe to show to clients.
//
// # Storage
//
// All shared state lives behind the kv.Store interface. The engine keeps no
// mutable state of its own besides metrics and the audit queue.
package blogAuth
