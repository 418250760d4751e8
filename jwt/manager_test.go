package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessTTL:     24 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	token, err := m.IssueAccess(Identity{Username: "alice", Role: "user", Email: "alice@x.test"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	claims, err := m.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if claims.Username() != "alice" || claims.Role != "user" || claims.Email != "alice@x.test" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 24*time.Hour {
		t.Fatalf("expected 24h lifetime, got %v", got)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	token, err := m.IssueAccess(Identity{Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	clock.now = clock.now.Add(25 * time.Hour)
	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsEveryPayloadBitFlip(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})

	token, err := m.IssueAccess(Identity{Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}

	payload := []byte(parts[1])
	for i := range payload {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(payload))
			copy(mutated, payload)
			mutated[i] ^= 1 << bit
			tampered := parts[0] + "." + string(mutated) + "." + parts[2]
			if _, err := m.Verify(tampered); err == nil {
				t.Fatalf("tampered token accepted (byte %d bit %d)", i, bit)
			}
		}
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})
	other, err := NewManager(Config{
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
		PrivateKey: []byte("another-secret-another-secret-xx"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, _ := other.IssueAccess(Identity{Username: "mallory", Role: "admin"})
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})

	access, _ := m.IssueAccess(Identity{Username: "alice", Role: "user"})
	refresh, claims, err := m.IssueRefresh(Identity{Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("refresh token must carry a jti")
	}

	if _, err := m.VerifyRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := m.VerifyRefresh(refresh); err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})
	// {"alg":"none","typ":"JWT"}.{"sub":"alice","role":"admin","typ":"access","exp":9999999999}.
	token := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJhbGljZSIsInJvbGUiOiJhZG1pbiIsInR5cCI6ImFjY2VzcyIsImV4cCI6OTk5OTk5OTk5OX0."
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestEd25519SigningMethod(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    2 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.IssueAccess(Identity{Username: "bob", Role: "collaborator"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	claims, err := m.VerifyAccess(token)
	if err != nil || claims.Role != "collaborator" {
		t.Fatalf("VerifyAccess = %+v, %v", claims, err)
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, PrivateKey: []byte("short")})
	if err == nil {
		t.Fatal("expected short hs256 secret to be rejected")
	}
}
