package blogAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/blogAuth/internal/limiters"
	"github.com/MrEthical07/blogAuth/internal/sanitize"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/password"
	"github.com/google/uuid"
)

// Register creates an unverified account, sends its verification email and
// returns a token pair for the caller's own session.
//
// Checks run in order: input validation, CAPTCHA, rate limits, optional
// deliverability check, then uniqueness. A failed email delivery does not
// fail the registration; the user can request a resend.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if e == nil || e.users == nil {
		return AuthResult{}, ErrEngineNotReady
	}

	username := normalizeUsername(in.Username)
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	mail, err := e.validateRegistration(username, email, name, in.Password, in.Mail)
	if err != nil {
		e.registerFailed(ctx, username, MetricRegistrationInvalid, err)
		return AuthResult{}, err
	}

	ip := clientIPFromContext(ctx)
	if err := e.checkCaptcha(ctx, in.CaptchaToken, ip); err != nil {
		e.registerFailed(ctx, username, MetricRegistrationCaptchaRejected, err)
		return AuthResult{}, err
	}

	if err := e.limiter.Enforce(ctx, ip, email); err != nil {
		switch {
		case errors.Is(err, limiters.ErrIPRateLimited):
			err = ErrRegisterIPLimited
			e.emitRateLimit(ctx, "register_ip", username)
		case errors.Is(err, limiters.ErrEmailRateLimited):
			err = ErrRegisterEmailLimited
			e.emitRateLimit(ctx, "register_email", username)
		default:
			err = unavailable("registration rate limit", err)
		}
		e.registerFailed(ctx, username, MetricRegistrationRateLimited, err)
		return AuthResult{}, err
	}

	if err := e.checkDeliverable(ctx, email); err != nil {
		e.registerFailed(ctx, username, MetricRegistrationInvalid, err)
		return AuthResult{}, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, unavailable("hash password", err)
	}

	now := e.clock()
	rec := &stores.UserRecord{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Role:            string(e.config.Registration.DefaultRole),
		CreatedAt:       now,
		UpdatedAt:       now,
		IsActive:        true,
		IsEmailVerified: false,
	}
	if err := e.users.Create(ctx, rec); err != nil {
		err = directoryError("create user", err)
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricRegistrationDuplicate)
			e.emitAudit(ctx, auditEntry{event: auditEventRegisterDuplicate, username: username, err: err}, nil)
			return AuthResult{}, err
		}
		e.registerFailed(ctx, username, MetricRegistrationInvalid, err)
		return AuthResult{}, err
	}

	if err := e.pending.Mark(ctx, username, now, e.config.Registration.PendingCleanupTTL); err != nil {
		e.logger.WarnContext(ctx, "write pending cleanup marker failed", "username", username, "error", err)
	}

	if err := e.deliverVerification(ctx, rec, mail); err != nil {
		e.logger.WarnContext(ctx, "verification email not sent", "username", username, "error", err)
	}

	tokens, err := e.issuePair(rec)
	if err != nil {
		return AuthResult{}, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEntry{event: auditEventRegisterSuccess, username: username, success: true}, func() map[string]string {
		return map[string]string{"role": rec.Role}
	})

	return AuthResult{User: publicUser(rec), Tokens: tokens}, nil
}

func (e *Engine) registerFailed(ctx context.Context, username string, id MetricID, err error) {
	e.metricInc(id)
	event := auditEventRegisterFailure
	if errors.Is(err, ErrTooManyRequests) {
		event = auditEventRegisterRateLimited
	}
	e.emitAudit(ctx, auditEntry{event: event, username: username, err: err}, nil)
}

func (e *Engine) validateRegistration(username, email, name, pass string, opts EmailOptions) (sanitize.Email, error) {
	if err := validateUsername(username); err != nil {
		return sanitize.Email{}, err
	}
	if err := validateEmail(email); err != nil {
		return sanitize.Email{}, err
	}
	if err := validateName(name); err != nil {
		return sanitize.Email{}, err
	}
	if err := e.checkPassword(pass); err != nil {
		return sanitize.Email{}, err
	}
	return e.sanitizeMail(opts)
}

func (e *Engine) checkPassword(pass string) error {
	if pass == "" {
		return validationError("password is required")
	}
	if err := e.hasher.CheckPolicy(pass); err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return validationError("password must be at least %d characters", e.hasher.MinLength())
		}
		return validationError("password is too long")
	}
	return nil
}

func (e *Engine) sanitizeMail(opts EmailOptions) (sanitize.Email, error) {
	out, err := e.sanitizer.Email(sanitize.Email{
		Subject:     opts.Subject,
		Body:        opts.Body,
		FromName:    opts.FromName,
		RedirectURL: opts.RedirectURL,
	})
	if err != nil {
		var fe *sanitize.FieldError
		if errors.As(err, &fe) {
			return sanitize.Email{}, validationError("%s", fe.Error())
		}
		return sanitize.Email{}, validationError("invalid email customisation")
	}
	return out, nil
}

// checkCaptcha fails closed: a verifier error rejects the registration.
func (e *Engine) checkCaptcha(ctx context.Context, token, ip string) error {
	if !e.config.Registration.RequireCaptcha {
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return ErrCaptchaRequired
	}
	if e.captcha == nil {
		return ErrEngineNotReady
	}
	ok, err := e.captcha.Verify(ctx, token, ip)
	if err != nil {
		e.logger.WarnContext(ctx, "captcha verification failed", "error", err)
		return ErrCaptchaFailed
	}
	if !ok {
		return ErrCaptchaFailed
	}
	return nil
}

// checkDeliverable fails open: a checker error is logged and ignored.
func (e *Engine) checkDeliverable(ctx context.Context, email string) error {
	if e.emailCheck == nil {
		return nil
	}
	res, err := e.emailCheck.Check(ctx, email)
	if err != nil {
		e.logger.WarnContext(ctx, "email validity check failed", "error", err)
		return nil
	}
	if !res.Deliverable || res.Disposable {
		return ErrEmailUndeliverable
	}
	return nil
}
