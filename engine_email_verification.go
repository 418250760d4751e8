package blogAuth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/internal"
	"github.com/MrEthical07/blogAuth/internal/limiters"
	"github.com/MrEthical07/blogAuth/internal/sanitize"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/providers"
)

var verificationTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.Name}},</p>
{{if .Body}}{{.Body}}{{else}}<p>Please confirm your email address to activate your account.</p>{{end}}
<p><a href="{{.Link}}">Verify email address</a></p>
<p>This link expires in {{.Expiry}}.</p>
</body>
</html>
`))

type verificationView struct {
	Name   string
	Body   template.HTML
	Link   string
	Expiry string
}

// VerifyEmail consumes a verification token and marks the owning account
// verified. A token can be used once; unknown, expired and consumed tokens
// fail with ErrVerificationNotFound.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (PublicUser, error) {
	if e == nil || e.verifications == nil {
		return PublicUser{}, ErrEngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return PublicUser{}, validationError("token is required")
	}
	if !internal.ValidOpaqueToken(token) {
		e.verifyFailed(ctx, "", ErrVerificationNotFound)
		return PublicUser{}, ErrVerificationNotFound
	}

	username, err := e.verifications.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, stores.ErrVerificationNotFound) {
			err = ErrVerificationNotFound
		} else {
			err = unavailable("consume verification token", err)
		}
		e.verifyFailed(ctx, "", err)
		return PublicUser{}, err
	}

	rec, err := e.loadUser(ctx, username)
	if err != nil {
		e.verifyFailed(ctx, username, err)
		return PublicUser{}, err
	}

	if !rec.IsEmailVerified {
		rec.IsEmailVerified = true
		rec.UpdatedAt = e.clock()
		if err := e.users.Save(ctx, rec); err != nil {
			err = directoryError("save user", err)
			e.verifyFailed(ctx, username, err)
			return PublicUser{}, err
		}
	}

	if err := e.pending.Clear(ctx, username); err != nil {
		e.logger.WarnContext(ctx, "clear pending cleanup marker failed", "username", username, "error", err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEntry{event: auditEventVerificationConfirm, username: username, success: true}, nil)

	return publicUser(rec), nil
}

func (e *Engine) verifyFailed(ctx context.Context, username string, err error) {
	e.metricInc(MetricEmailVerificationFailure)
	e.emitAudit(ctx, auditEntry{event: auditEventVerificationConfirm, username: username, err: err}, nil)
}

// ResendVerification issues a fresh token for the account registered under
// email and sends it. Earlier tokens stay valid until their own expiry.
//
// Requests are rate limited per email and per client IP before the account
// is looked up; a spent budget fails with ErrResendRateLimited.
func (e *Engine) ResendVerification(ctx context.Context, email string, opts EmailOptions) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	mail, err := e.sanitizeMail(opts)
	if err != nil {
		return err
	}

	if err := e.resendLimiter.Enforce(ctx, clientIPFromContext(ctx), email); err != nil {
		if errors.Is(err, limiters.ErrResendRateLimited) {
			e.metricInc(MetricResendRateLimited)
			e.emitRateLimit(ctx, "resend_verification", "")
			return ErrResendRateLimited
		}
		return unavailable("resend rate limit", err)
	}

	rec, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return directoryError("find user by email", err)
	}
	if rec.IsEmailVerified {
		return ErrAlreadyVerified
	}

	if err := e.deliverVerification(ctx, rec, mail); err != nil {
		return unavailable("send verification email", err)
	}
	return nil
}

// deliverVerification issues a token for rec and mails the link.
func (e *Engine) deliverVerification(ctx context.Context, rec *stores.UserRecord, mail sanitize.Email) error {
	token, err := internal.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := e.verifications.Save(ctx, token, rec.Username, e.config.EmailVerification.TokenTTL); err != nil {
		return err
	}

	if e.mailer == nil {
		e.logger.InfoContext(ctx, "no mailer configured, verification email skipped", "username", rec.Username)
		return nil
	}

	msg, err := e.verificationMessage(rec, token, mail)
	if err != nil {
		return err
	}
	if err := e.mailer.Send(ctx, msg); err != nil {
		e.metricInc(MetricEmailDeliveryFailure)
		e.emitAudit(ctx, auditEntry{event: auditEventEmailDeliveryFailure, username: rec.Username, err: unavailable("send email", err)}, nil)
		return err
	}

	e.metricInc(MetricEmailVerificationSent)
	e.emitAudit(ctx, auditEntry{event: auditEventVerificationSent, username: rec.Username, success: true}, nil)
	return nil
}

func (e *Engine) verificationMessage(rec *stores.UserRecord, token string, mail sanitize.Email) (providers.Message, error) {
	cfg := e.config.EmailVerification

	subject := mail.Subject
	if subject == "" {
		subject = cfg.DefaultSubject
	}
	fromName := mail.FromName
	if fromName == "" {
		fromName = cfg.FromName
	}
	from := cfg.From
	if fromName != "" {
		from = fromName + " <" + cfg.From + ">"
	}

	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, verificationView{
		Name: rec.Name,
		// mail.Body has been through the UGC policy.
		Body:   template.HTML(mail.Body),
		Link:   e.verificationLink(token, mail.RedirectURL),
		Expiry: expiryText(cfg.TokenTTL),
	})
	if err != nil {
		return providers.Message{}, err
	}

	return providers.Message{
		From:    from,
		To:      rec.Email,
		Subject: subject,
		HTML:    body.String(),
	}, nil
}

// verificationLink builds {SiteURL}{VerifyPath}?token=T[&redirect=R].
func (e *Engine) verificationLink(token, redirect string) string {
	cfg := e.config.EmailVerification
	q := url.Values{}
	q.Set("token", token)
	if redirect != "" {
		q.Set("redirect", redirect)
	}
	return strings.TrimRight(cfg.SiteURL, "/") + cfg.VerifyPath + "?" + q.Encode()
}

func expiryText(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
