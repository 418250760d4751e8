package blogAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/blogAuth/internal/limiters"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/jwt"
)

// Login checks credentials and account state and issues an access and
// refresh token pair.
//
// Unknown users and wrong passwords both fail with ErrInvalidCredentials and
// count against the failed-login budgets of the username and client IP; once
// either is spent, Login fails with ErrLoginRateLimited before the password
// is checked. Disabled accounts fail with ErrAccountInactive and unverified
// accounts with ErrEmailUnverified, both only after the password has been
// checked.
func (e *Engine) Login(ctx context.Context, username, pass string) (AuthResult, error) {
	if e == nil || e.users == nil {
		return AuthResult{}, ErrEngineNotReady
	}

	username = normalizeUsername(username)
	if username == "" || pass == "" {
		return AuthResult{}, validationError("username and password are required")
	}

	ip := clientIPFromContext(ctx)
	if err := e.loginLimiter.Check(ctx, username, ip); err != nil {
		if errors.Is(err, limiters.ErrLoginRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login", username)
			e.emitAudit(ctx, auditEntry{event: auditEventLoginFailure, username: username, err: ErrLoginRateLimited}, nil)
			return AuthResult{}, ErrLoginRateLimited
		}
		err = unavailable("login rate limit", err)
		e.loginFailed(ctx, username, err)
		return AuthResult{}, err
	}

	rec, err := e.users.Get(ctx, username)
	if err != nil {
		err = directoryError("load user", err)
		if errors.Is(err, ErrUserNotFound) {
			err = ErrInvalidCredentials
			e.countFailure(ctx, username, ip)
		}
		e.loginFailed(ctx, username, err)
		return AuthResult{}, err
	}

	ok, err := e.hasher.Verify(pass, rec.PasswordHash)
	if err != nil {
		err = unavailable("verify password", err)
		e.loginFailed(ctx, username, err)
		return AuthResult{}, err
	}
	if !ok {
		e.countFailure(ctx, username, ip)
		e.loginFailed(ctx, username, ErrInvalidCredentials)
		return AuthResult{}, ErrInvalidCredentials
	}

	if !rec.IsActive {
		e.loginFailed(ctx, username, ErrAccountInactive)
		return AuthResult{}, ErrAccountInactive
	}
	if !rec.IsEmailVerified {
		e.loginFailed(ctx, username, ErrEmailUnverified)
		return AuthResult{}, ErrEmailUnverified
	}

	if err := e.loginLimiter.Reset(ctx, username); err != nil {
		e.logger.WarnContext(ctx, "reset login attempts failed", "username", username, "error", err)
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, rec, pass)
	}

	now := e.clock()
	rec.LastLoginAt = &now
	if err := e.users.Save(ctx, rec); err != nil {
		// deleted while the password was being checked
		if errors.Is(err, stores.ErrUserNotFound) {
			e.loginFailed(ctx, username, ErrInvalidCredentials)
			return AuthResult{}, ErrInvalidCredentials
		}
		e.logger.WarnContext(ctx, "record last login failed", "username", username, "error", err)
	}

	tokens, err := e.issuePair(rec)
	if err != nil {
		e.loginFailed(ctx, username, err)
		return AuthResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEntry{event: auditEventLoginSuccess, username: username, success: true}, nil)

	return AuthResult{User: publicUser(rec), Tokens: tokens}, nil
}

// upgradeHash replaces rec.PasswordHash in place; the caller persists it.
func (e *Engine) upgradeHash(ctx context.Context, rec *stores.UserRecord, pass string) {
	stale, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed", "username", rec.Username, "error", err)
		return
	}
	rec.PasswordHash = hash
}

// countFailure logs limiter errors; a wrong password stays a 401.
func (e *Engine) countFailure(ctx context.Context, username, ip string) {
	if err := e.loginLimiter.RecordFailure(ctx, username, ip); err != nil {
		e.logger.WarnContext(ctx, "record failed login failed", "username", username, "error", err)
	}
}

func (e *Engine) loginFailed(ctx context.Context, username string, err error) {
	if errors.Is(err, ErrForbidden) {
		e.metricInc(MetricLoginForbidden)
	} else {
		e.metricInc(MetricLoginFailure)
	}
	e.emitAudit(ctx, auditEntry{event: auditEventLoginFailure, username: username, err: err}, nil)
}

// Refresh verifies a refresh token and issues a new access token carrying the
// account's current role. The refresh token stays valid until it expires or
// is revoked by Logout.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if e == nil || e.jwtManager == nil {
		return RefreshResult{}, ErrEngineNotReady
	}
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{}, validationError("refreshToken is required")
	}

	claims, err := e.jwtManager.VerifyRefresh(refreshToken)
	if err != nil {
		err = tokenError(err, ErrRefreshInvalid)
		e.refreshFailed(ctx, "", err)
		return RefreshResult{}, err
	}
	username := claims.Username()

	revoked, err := e.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		err = unavailable("check refresh revocation", err)
		e.refreshFailed(ctx, username, err)
		return RefreshResult{}, err
	}
	if revoked {
		e.metricInc(MetricRefreshRevoked)
		e.refreshFailed(ctx, username, ErrRefreshRevoked)
		return RefreshResult{}, ErrRefreshRevoked
	}

	rec, err := e.loadUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = ErrRefreshInvalid
		}
		e.refreshFailed(ctx, username, err)
		return RefreshResult{}, err
	}
	if !rec.IsActive {
		e.refreshFailed(ctx, username, ErrRefreshInactive)
		return RefreshResult{}, ErrRefreshInactive
	}

	access, err := e.jwtManager.IssueAccess(jwt.Identity{Username: rec.Username, Role: rec.Role, Email: rec.Email})
	if err != nil {
		err = unavailable("issue access token", err)
		e.refreshFailed(ctx, username, err)
		return RefreshResult{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEntry{event: auditEventRefreshSuccess, username: username, success: true}, nil)

	return RefreshResult{AccessToken: access, User: publicUser(rec)}, nil
}

func (e *Engine) refreshFailed(ctx context.Context, username string, err error) {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEntry{event: auditEventRefreshInvalid, username: username, err: err}, nil)
}

// Logout revokes refreshToken until its natural expiry. A missing, malformed
// or already expired token is not an error: there is nothing left to revoke.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	e.metricInc(MetricLogout)
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	claims, err := e.jwtManager.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(e.now())
	if err := e.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return unavailable("revoke refresh token", err)
	}

	e.emitAudit(ctx, auditEntry{event: auditEventLogout, username: claims.Username(), success: true}, nil)
	return nil
}
