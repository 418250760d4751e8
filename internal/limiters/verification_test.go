package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/blogAuth/internal/kvtest"
)

func newVerificationLimiter(t *testing.T) (*VerificationLimiter, func(time.Duration)) {
	t.Helper()
	mr, store := kvtest.New(t)
	l := NewVerificationLimiter(store, VerificationConfig{EmailLimit: 3, IPLimit: 4, Window: time.Hour})
	return l, mr.FastForward
}

func TestFourthResendForEmailRejected(t *testing.T) {
	l, _ := newVerificationLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Enforce(ctx, "", "alice@x.test"); err != nil {
			t.Fatalf("resend %d rejected: %v", i+1, err)
		}
	}
	if err := l.Enforce(ctx, "", " ALICE@x.test"); !errors.Is(err, ErrResendRateLimited) {
		t.Fatalf("expected ErrResendRateLimited, got %v", err)
	}
	if err := l.Enforce(ctx, "", "bob@x.test"); err != nil {
		t.Fatalf("other email must have its own budget: %v", err)
	}
}

func TestResendIPBudgetSpansEmails(t *testing.T) {
	l, _ := newVerificationLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		email := string(rune('a'+i)) + "@x.test"
		if err := l.Enforce(ctx, "10.0.0.1", email); err != nil {
			t.Fatalf("resend %d rejected: %v", i+1, err)
		}
	}
	if err := l.Enforce(ctx, "10.0.0.1", "z@x.test"); !errors.Is(err, ErrResendRateLimited) {
		t.Fatalf("expected ErrResendRateLimited, got %v", err)
	}
}

func TestResendWindowResets(t *testing.T) {
	l, fastForward := newVerificationLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Enforce(ctx, "", "bob@x.test")
	}
	if err := l.Enforce(ctx, "", "bob@x.test"); !errors.Is(err, ErrResendRateLimited) {
		t.Fatalf("expected ErrResendRateLimited, got %v", err)
	}
	fastForward(61 * time.Minute)
	if err := l.Enforce(ctx, "", "bob@x.test"); err != nil {
		t.Fatalf("expected budget after window, got %v", err)
	}
}
