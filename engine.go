package blogAuth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/blogAuth/internal/audit"
	"github.com/MrEthical07/blogAuth/internal/limiters"
	"github.com/MrEthical07/blogAuth/internal/sanitize"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/jwt"
	"github.com/MrEthical07/blogAuth/kv"
	"github.com/MrEthical07/blogAuth/password"
	"github.com/MrEthical07/blogAuth/permission"
	"github.com/MrEthical07/blogAuth/providers"
)

// Engine implements registration, login, token refresh, email verification,
// profile and admin operations over a key-value store.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	store         kv.Store
	users         *stores.UserDirectory
	verifications *stores.VerificationStore
	pending       *stores.PendingMarkers
	revocations   *stores.RevocationList
	limiter       *limiters.RegistrationLimiter
	loginLimiter  *limiters.LoginLimiter
	resendLimiter *limiters.VerificationLimiter
	jwtManager    *jwt.Manager
	hasher        *password.Hasher
	policy        *permission.Policy
	sanitizer     *sanitize.Sanitizer
	captcha       providers.CaptchaVerifier
	emailCheck    providers.EmailChecker
	mailer        providers.Mailer
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Ping reports whether the backing store answers. It is used by health checks.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if _, err := e.store.Get(ctx, "healthz"); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return unavailable("ping store", err)
	}
	return nil
}

// Verify validates an access token and returns the identity it proves.
// Refresh tokens are rejected.
func (e *Engine) Verify(ctx context.Context, token string) (Identity, error) {
	if e == nil || e.jwtManager == nil {
		return Identity{}, ErrEngineNotReady
	}
	if token == "" {
		return Identity{}, ErrTokenMissing
	}

	start := time.Now()
	claims, err := e.jwtManager.VerifyAccess(token)
	if e.metrics != nil {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricTokenVerifyFailure)
		return Identity{}, tokenError(err, ErrTokenInvalid)
	}

	return identityFromClaims(claims), nil
}

func identityFromClaims(c *jwt.Claims) Identity {
	id := Identity{
		Username: c.Username(),
		Role:     Role(c.Role),
		Email:    c.Email,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

// tokenError maps jwt package failures onto the public taxonomy.
func tokenError(err, invalid error) error {
	if errors.Is(err, jwt.ErrExpiredToken) {
		return ErrTokenExpired
	}
	return invalid
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// loadUser fetches a record and maps directory failures.
func (e *Engine) loadUser(ctx context.Context, username string) (*stores.UserRecord, error) {
	rec, err := e.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("load user", err)
	}
	return rec, nil
}

// directoryError maps uniqueness and backend failures from the user directory.
func directoryError(op string, err error) error {
	switch {
	case errors.Is(err, stores.ErrUsernameTaken):
		return ErrDuplicateUsername
	case errors.Is(err, stores.ErrEmailTaken):
		return ErrDuplicateEmail
	case errors.Is(err, stores.ErrNameTaken):
		return ErrDuplicateName
	case errors.Is(err, stores.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return unavailable(op, err)
	}
}

func (e *Engine) issuePair(rec *stores.UserRecord) (TokenPair, error) {
	id := jwt.Identity{Username: rec.Username, Role: rec.Role, Email: rec.Email}
	access, err := e.jwtManager.IssueAccess(id)
	if err != nil {
		return TokenPair{}, unavailable("issue access token", err)
	}
	refresh, _, err := e.jwtManager.IssueRefresh(id)
	if err != nil {
		return TokenPair{}, unavailable("issue refresh token", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
