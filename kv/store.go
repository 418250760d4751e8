package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is missing or its TTL has elapsed.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("kv: backend unavailable")
)

// Entry is a key/value pair returned by [Store.ListByPrefix].
type Entry struct {
	Key   string
	Value []byte
}

// Store is the narrow repository interface over the key-value directory.
//
// A zero ttl means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// PutIfAbsent writes value only if key does not exist and reports whether it did.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// PutIfPresent overwrites value only if key exists and reports whether it did.
	PutIfPresent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Take returns the value and deletes the key in one step.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Incr increments the counter at key and starts a window of length window
	// when the counter is created.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// ListByPrefix returns every live entry whose key starts with prefix, in key order.
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)
}
