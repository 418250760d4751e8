package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/blogAuth/internal/kvtest"
)

func newLoginLimiter(t *testing.T) (*LoginLimiter, func(time.Duration)) {
	t.Helper()
	mr, store := kvtest.New(t)
	l := NewLoginLimiter(store, LoginConfig{MaxAttempts: 3, IPMaxAttempts: 5, Window: 15 * time.Minute})
	return l, mr.FastForward
}

func TestLoginUsernameBudget(t *testing.T) {
	l, _ := newLoginLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d rejected: %v", i+1, err)
		}
		if err := l.RecordFailure(ctx, "alice", ""); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	if err := l.Check(ctx, "Alice ", ""); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "bob", ""); err != nil {
		t.Fatalf("other username must have its own budget: %v", err)
	}
}

func TestLoginCheckDoesNotCount(t *testing.T) {
	l, _ := newLoginLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.Check(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("check %d rejected: %v", i+1, err)
		}
	}
}

func TestLoginIPBudgetSpansUsernames(t *testing.T) {
	l, _ := newLoginLimiter(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c", "d", "e"} {
		if err := l.RecordFailure(ctx, u, "10.0.0.1"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	if err := l.Check(ctx, "f", "10.0.0.1"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "f", "10.0.0.2"); err != nil {
		t.Fatalf("other IP must have its own budget: %v", err)
	}
}

func TestLoginResetClearsUsernameOnly(t *testing.T) {
	l, _ := newLoginLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.RecordFailure(ctx, "alice", "10.0.0.1")
	}
	if err := l.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Check(ctx, "alice", ""); err != nil {
		t.Fatalf("expected username budget restored, got %v", err)
	}

	_ = l.RecordFailure(ctx, "bob", "10.0.0.1")
	_ = l.RecordFailure(ctx, "bob", "10.0.0.1")
	if err := l.Check(ctx, "carol", "10.0.0.1"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("IP counter must survive a reset, got %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, fastForward := newLoginLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.RecordFailure(ctx, "alice", "")
	}
	if err := l.Check(ctx, "alice", ""); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	fastForward(16 * time.Minute)
	if err := l.Check(ctx, "alice", ""); err != nil {
		t.Fatalf("expected budget after window, got %v", err)
	}
}

func TestNilLoginLimiterAllows(t *testing.T) {
	var l *LoginLimiter
	ctx := context.Background()
	if err := l.RecordFailure(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("RecordFailure = %v", err)
	}
	if err := l.Check(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("Check = %v", err)
	}
}
