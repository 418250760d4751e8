package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

// ErrLoginRateLimited is returned once a username or IP has spent its
// failed-attempt budget for the current window.
var ErrLoginRateLimited = errors.New("too many failed login attempts")

const (
	loginUserKeyPrefix = "login_fail:"
	loginIPKeyPrefix   = "login_fail_ip:"
)

// LoginConfig sets failed-attempt budgets. A zero limit disables that counter.
type LoginConfig struct {
	MaxAttempts   int
	IPMaxAttempts int
	Window        time.Duration
}

// LoginLimiter counts failed logins per username and per client IP.
// Only RecordFailure moves the counters; Check refuses even a correct
// password while a budget is spent.
type LoginLimiter struct {
	store  kv.Store
	config LoginConfig
}

func NewLoginLimiter(store kv.Store, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{
		store:  store,
		config: cfg,
	}
}

// Check reports ErrLoginRateLimited when either counter is at its limit.
func (l *LoginLimiter) Check(ctx context.Context, username, ip string) error {
	if l == nil || l.store == nil {
		return nil
	}
	if l.config.MaxAttempts > 0 {
		if err := l.check(ctx, loginUserKeyPrefix+loginKey(username), l.config.MaxAttempts); err != nil {
			return err
		}
	}
	if l.config.IPMaxAttempts > 0 && ip != "" {
		if err := l.check(ctx, loginIPKeyPrefix+ip, l.config.IPMaxAttempts); err != nil {
			return err
		}
	}
	return nil
}

func (l *LoginLimiter) check(ctx context.Context, key string, limit int) error {
	n, err := count(ctx, l.store, key)
	if err != nil {
		return err
	}
	if n >= int64(limit) {
		return ErrLoginRateLimited
	}
	return nil
}

// RecordFailure counts one failed attempt against both counters.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username, ip string) error {
	if l == nil || l.store == nil {
		return nil
	}
	if l.config.MaxAttempts > 0 {
		if _, err := hit(ctx, l.store, loginUserKeyPrefix+loginKey(username), l.config.Window, l.config.MaxAttempts); err != nil {
			return err
		}
	}
	if l.config.IPMaxAttempts > 0 && ip != "" {
		if _, err := hit(ctx, l.store, loginIPKeyPrefix+ip, l.config.Window, l.config.IPMaxAttempts); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the username counter after a successful login. The IP
// counter is left to expire.
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	if l == nil || l.store == nil || l.config.MaxAttempts <= 0 {
		return nil
	}
	if err := l.store.Delete(ctx, loginUserKeyPrefix+loginKey(username)); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func loginKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
