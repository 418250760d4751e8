package stores

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

// ErrVerificationNotFound covers unknown, expired and already consumed tokens.
var ErrVerificationNotFound = errors.New("verification token not found")

const verificationKeyPrefix = "email_verify:"

// VerificationStore maps opaque email verification tokens to usernames.
type VerificationStore struct {
	kv kv.Store
}

func NewVerificationStore(store kv.Store) *VerificationStore {
	return &VerificationStore{kv: store}
}

// Save stores token -> username for ttl.
func (s *VerificationStore) Save(ctx context.Context, token, username string, ttl time.Duration) error {
	ok, err := s.kv.PutIfAbsent(ctx, verificationKeyPrefix+token, []byte(username), ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("verification token collision")
	}
	return nil
}

// Consume atomically reads and deletes the mapping.
func (s *VerificationStore) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrVerificationNotFound
	}
	raw, err := s.kv.Take(ctx, verificationKeyPrefix+token)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrVerificationNotFound
		}
		return "", err
	}
	return string(raw), nil
}
