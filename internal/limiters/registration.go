package limiters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

var (
	// ErrIPRateLimited is returned once an IP exceeds its hourly budget.
	ErrIPRateLimited = errors.New("too many registration attempts from this address")
	// ErrEmailRateLimited is returned once an email exceeds its hourly budget.
	ErrEmailRateLimited = errors.New("too many registration attempts for this email")
)

const (
	ipKeyPrefix    = "register_limit:"
	emailKeyPrefix = "register_email_limit:"
)

// RegistrationConfig sets per-window budgets. A zero limit disables that counter.
type RegistrationConfig struct {
	IPLimit    int
	EmailLimit int
	Window     time.Duration
}

// RegistrationLimiter counts registration attempts per client IP and per email.
type RegistrationLimiter struct {
	store  kv.Store
	config RegistrationConfig
}

func NewRegistrationLimiter(store kv.Store, cfg RegistrationConfig) *RegistrationLimiter {
	return &RegistrationLimiter{
		store:  store,
		config: cfg,
	}
}

// Enforce records one attempt. The IP counter is checked first; an attempt
// rejected by IP does not consume email budget.
func (l *RegistrationLimiter) Enforce(ctx context.Context, ip, email string) error {
	if l == nil || l.store == nil {
		return nil
	}

	if l.config.IPLimit > 0 && ip != "" {
		if err := l.hit(ctx, ipKeyPrefix+ip, l.config.IPLimit, ErrIPRateLimited); err != nil {
			return err
		}
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if l.config.EmailLimit > 0 && email != "" {
		if err := l.hit(ctx, emailKeyPrefix+email, l.config.EmailLimit, ErrEmailRateLimited); err != nil {
			return err
		}
	}

	return nil
}

func (l *RegistrationLimiter) hit(ctx context.Context, key string, limit int, limited error) error {
	over, err := hit(ctx, l.store, key, l.config.Window, limit)
	if err != nil {
		return err
	}
	if over {
		return limited
	}
	return nil
}
