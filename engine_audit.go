package blogAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRegisterDuplicate    = "register_duplicate"
	auditEventRegisterRateLimited  = "register_rate_limited"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventLogout               = "logout"
	auditEventVerificationSent     = "email_verification_sent"
	auditEventVerificationConfirm  = "email_verification_confirm"
	auditEventProfileUpdate        = "profile_update"
	auditEventAdminRoleChange      = "admin_role_change"
	auditEventAdminStatusChange    = "admin_status_change"
	auditEventAdminDelete          = "admin_delete"
	auditEventAdminCreate          = "admin_create"
	auditEventAdminDenied          = "admin_denied"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventEmailDeliveryFailure = "email_delivery_failure"
)

// AuditErrorCode is the machine-readable failure reason on audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrRevoked            AuditErrorCode = "revoked"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditEntry names the affected account and, for admin actions, the caller.
type auditEntry struct {
	event    string
	username string
	actor    string
	success  bool
	err      error
}

func (e *Engine) emitAudit(ctx context.Context, entry auditEntry, metadataBuilder func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: entry.event,
		Username:  entry.username,
		Actor:     entry.actor,
		IP:        clientIPFromContext(ctx),
		Success:   entry.success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(entry.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, username string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEntry{event: auditEventRateLimitTriggered, username: username}, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrRefreshRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountDisabled
	case errors.Is(err, ErrEmailUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrUnauthorized):
		return auditErrInvalidToken
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrConflict):
		return auditErrDuplicate
	case errors.Is(err, ErrTooManyRequests):
		return auditErrRateLimited
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
