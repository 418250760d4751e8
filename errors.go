package blogAuth

import (
	"errors"
	"fmt"
)

// Error kinds. Each maps to one HTTP status in httpapi.
var (
	// ErrValidation marks malformed or missing input (400).
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks bad credentials or unusable tokens (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks authenticated callers that may not proceed (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks unknown users or verification tokens (404).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks uniqueness violations (409).
	ErrConflict = errors.New("conflict")
	// ErrTooManyRequests marks rate limited requests (429).
	ErrTooManyRequests = errors.New("too many requests")
	// ErrUnavailable marks backend failures. Clients see a generic 500.
	ErrUnavailable = errors.New("service unavailable")
)

// kindError is a client-safe message bound to a kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidCredentials   = newKindError(ErrUnauthorized, "invalid username or password")
	ErrTokenInvalid         = newKindError(ErrUnauthorized, "invalid token")
	ErrTokenExpired         = newKindError(ErrUnauthorized, "token expired")
	ErrTokenMissing         = newKindError(ErrUnauthorized, "authorization token required")
	ErrRefreshInvalid       = newKindError(ErrUnauthorized, "invalid refresh token")
	ErrRefreshRevoked       = newKindError(ErrUnauthorized, "refresh token revoked")
	ErrRefreshInactive      = newKindError(ErrUnauthorized, "account is disabled")
	ErrAccountInactive      = newKindError(ErrForbidden, "account is disabled")
	ErrEmailUnverified      = newKindError(ErrForbidden, "email address not verified")
	ErrAdminRequired        = newKindError(ErrForbidden, "admin access required")
	ErrSuperAdminProtected  = newKindError(ErrForbidden, "super-admin accounts can only be modified by super-admins")
	ErrPeerAdmin            = newKindError(ErrForbidden, "admins cannot modify other admin accounts")
	ErrUserNotFound         = newKindError(ErrNotFound, "user not found")
	ErrVerificationNotFound = newKindError(ErrNotFound, "invalid or expired verification token")
	ErrDuplicateUsername    = newKindError(ErrConflict, "username already exists")
	ErrDuplicateEmail       = newKindError(ErrConflict, "email already exists")
	ErrDuplicateName        = newKindError(ErrConflict, "name already exists")
	ErrAlreadyVerified      = newKindError(ErrConflict, "email already verified")
	ErrRegisterIPLimited    = newKindError(ErrTooManyRequests, "too many registration attempts, try again later")
	ErrRegisterEmailLimited = newKindError(ErrTooManyRequests, "too many registration attempts for this email, try again later")
	ErrLoginRateLimited     = newKindError(ErrTooManyRequests, "too many failed login attempts, try again later")
	ErrResendRateLimited    = newKindError(ErrTooManyRequests, "too many verification emails requested, try again later")
	ErrCaptchaRequired      = newKindError(ErrValidation, "captcha token required")
	ErrCaptchaFailed        = newKindError(ErrValidation, "captcha verification failed")
	ErrEmailUndeliverable   = newKindError(ErrValidation, "email address cannot receive mail")
	ErrEngineNotReady       = newKindError(ErrUnavailable, "engine not initialized")
)

// validationError builds a 400 error with a field-specific message.
func validationError(format string, args ...any) error {
	return newKindError(ErrValidation, fmt.Sprintf(format, args...))
}

// unavailable wraps a backend failure. The cause stays reachable through
// errors.Is/As for logging but is not part of the client message.
func unavailable(op string, cause error) error {
	return &backendError{op: op, cause: cause}
}

type backendError struct {
	op    string
	cause error
}

func (e *backendError) Error() string {
	return e.op + ": " + e.cause.Error()
}

func (e *backendError) Unwrap() []error {
	return []error{ErrUnavailable, e.cause}
}

// PublicMessage returns the client-safe text for err. Errors that carry no
// kind yield the generic internal error message.
func PublicMessage(err error) string {
	var ke *kindError
	if errors.As(err, &ke) && !errors.Is(err, ErrUnavailable) {
		return ke.msg
	}
	return "internal server error"
}
