package limiters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

// ErrResendRateLimited is returned once an email or IP has requested too many
// verification emails in the current window.
var ErrResendRateLimited = errors.New("too many verification emails requested")

const (
	resendEmailKeyPrefix = "resend_verify_limit:"
	resendIPKeyPrefix    = "resend_verify_ip_limit:"
)

// VerificationConfig sets resend budgets. A zero limit disables that counter.
type VerificationConfig struct {
	EmailLimit int
	IPLimit    int
	Window     time.Duration
}

// VerificationLimiter caps verification email resends per target address and
// per client IP.
type VerificationLimiter struct {
	store  kv.Store
	config VerificationConfig
}

func NewVerificationLimiter(store kv.Store, cfg VerificationConfig) *VerificationLimiter {
	return &VerificationLimiter{
		store:  store,
		config: cfg,
	}
}

// Enforce records one resend request. Requests for unknown addresses count
// the same as known ones.
func (l *VerificationLimiter) Enforce(ctx context.Context, ip, email string) error {
	if l == nil || l.store == nil {
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if l.config.EmailLimit > 0 && email != "" {
		over, err := hit(ctx, l.store, resendEmailKeyPrefix+email, l.config.Window, l.config.EmailLimit)
		if err != nil {
			return err
		}
		if over {
			return ErrResendRateLimited
		}
	}
	if l.config.IPLimit > 0 && ip != "" {
		over, err := hit(ctx, l.store, resendIPKeyPrefix+ip, l.config.Window, l.config.IPLimit)
		if err != nil {
			return err
		}
		if over {
			return ErrResendRateLimited
		}
	}
	return nil
}
