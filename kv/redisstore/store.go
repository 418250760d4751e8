// Package redisstore implements [kv.Store] on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 256

var _ kv.Store = (*Store)(nil)

// Store is a Redis-backed [kv.Store]. Keys are stored under an optional
// namespace so several deployments can share one Redis.
type Store struct {
	redis     redis.UniversalClient
	namespace string
}

// New returns a Store using client. namespace may be empty.
func New(client redis.UniversalClient, namespace string) *Store {
	if namespace != "" && !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &Store{redis: client, namespace: namespace}
}

// NewFromURL parses a redis:// URL and pings the server.
func NewFromURL(ctx context.Context, redisURL, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return New(client, namespace), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.redis.Close()
}

func (s *Store) key(k string) string {
	return s.namespace + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (s *Store) PutIfPresent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetXX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.GetDel(ctx, s.key(key)).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := s.key(key)
	count, err := s.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, mapErr(err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 && window > 0 {
		if err := s.redis.Expire(ctx, k, window).Err(); err != nil {
			return 0, mapErr(err)
		}
	}

	return count, nil
}

func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]kv.Entry, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"

	var (
		cursor uint64
		keys   []string
	)
	seen := make(map[string]struct{})
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, mapErr(err)
		}
		for _, k := range batch {
			// SCAN may return a key more than once.
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)

	entries := make([]kv.Entry, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		values, err := s.redis.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, mapErr(err)
		}
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				// expired between SCAN and MGET
				continue
			}
			entries = append(entries, kv.Entry{
				Key:   strings.TrimPrefix(keys[start+i], s.namespace),
				Value: []byte(str),
			})
		}
	}

	return entries, nil
}

func mapErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return kv.ErrNotFound
	}
	return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
}

func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
