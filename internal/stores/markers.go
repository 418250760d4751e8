package stores

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

const (
	pendingKeyPrefix = "pending_cleanup:"
	revokedKeyPrefix = "refresh_revoked:"
)

// PendingMarkers tracks unverified registrations for an external cleanup job.
type PendingMarkers struct {
	kv kv.Store
}

func NewPendingMarkers(store kv.Store) *PendingMarkers {
	return &PendingMarkers{kv: store}
}

// Mark writes pending_cleanup:{username} with the registration time.
func (m *PendingMarkers) Mark(ctx context.Context, username string, at time.Time, ttl time.Duration) error {
	return m.kv.Put(ctx, pendingKeyPrefix+username, []byte(at.UTC().Format(time.RFC3339)), ttl)
}

func (m *PendingMarkers) Clear(ctx context.Context, username string) error {
	return m.kv.Delete(ctx, pendingKeyPrefix+username)
}

// Pending reports whether the marker is still present.
func (m *PendingMarkers) Pending(ctx context.Context, username string) (bool, error) {
	_, err := m.kv.Get(ctx, pendingKeyPrefix+username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kv.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// RevocationList records refresh token ids that must no longer be accepted.
type RevocationList struct {
	kv kv.Store
}

func NewRevocationList(store kv.Store) *RevocationList {
	return &RevocationList{kv: store}
}

// Revoke stores the id until the token would have expired anyway. A
// non-positive ttl means the token is already dead and nothing is written.
func (r *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.kv.Put(ctx, revokedKeyPrefix+jti, []byte("1"), ttl)
}

func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.kv.Get(ctx, revokedKeyPrefix+jti)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kv.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
