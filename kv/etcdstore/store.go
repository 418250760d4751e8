// Package etcdstore implements [kv.Store] on etcd v3.
//
// TTLs map to leases (rounded up to whole seconds). PutIfAbsent, PutIfPresent
// and Incr are compare-and-swap transactions that revoke their lease when the
// compare fails. Take is a delete that returns the previous value.
package etcdstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const maxIncrRetries = 16

// Config holds etcd connection settings.
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

var _ kv.Store = (*Store)(nil)

// Store is an etcd-backed [kv.Store].
type Store struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	closer io.Closer
	prefix string
}

// New dials etcd and checks the first endpoint's health.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("etcd endpoints required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(statusCtx, cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: etcd health check: %v", kv.ErrUnavailable, err)
	}

	return NewFromClient(client, cfg.Prefix), nil
}

// NewFromClient wraps an existing client. Close closes it.
func NewFromClient(client *clientv3.Client, prefix string) *Store {
	return &Store{kv: client.KV, lease: client.Lease, closer: client, prefix: prefix}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// grant returns the put options for ttl and the lease backing them, or
// NoLease when ttl is zero.
func (s *Store) grant(ctx context.Context, ttl time.Duration) ([]clientv3.OpOption, clientv3.LeaseID, error) {
	if ttl <= 0 {
		return nil, clientv3.NoLease, nil
	}
	seconds := int64(math.Ceil(ttl.Seconds()))
	lease, err := s.lease.Grant(ctx, seconds)
	if err != nil {
		return nil, clientv3.NoLease, fmt.Errorf("%w: grant lease: %v", kv.ErrUnavailable, err)
	}
	return []clientv3.OpOption{clientv3.WithLease(lease.ID)}, lease.ID, nil
}

// revoke drops a lease whose put did not happen. Errors are ignored: an
// orphaned lease still expires on its own.
func (s *Store) revoke(ctx context.Context, id clientv3.LeaseID) {
	if id == clientv3.NoLease {
		return
	}
	_, _ = s.lease.Revoke(context.WithoutCancel(ctx), id)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.kv.Get(ctx, s.key(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, kv.ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	opts, lease, err := s.grant(ctx, ttl)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, s.key(key), string(value), opts...); err != nil {
		s.revoke(ctx, lease)
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	k := s.key(key)
	return s.putIf(ctx, clientv3.Compare(clientv3.CreateRevision(k), "=", 0), k, value, ttl)
}

func (s *Store) PutIfPresent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	k := s.key(key)
	return s.putIf(ctx, clientv3.Compare(clientv3.CreateRevision(k), "!=", 0), k, value, ttl)
}

// putIf writes k when cmp holds. The lease is granted up front and revoked
// when the transaction does not apply.
func (s *Store) putIf(ctx context.Context, cmp clientv3.Cmp, k string, value []byte, ttl time.Duration) (bool, error) {
	opts, lease, err := s.grant(ctx, ttl)
	if err != nil {
		return false, err
	}
	resp, err := s.kv.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(k, string(value), opts...)).
		Commit()
	if err != nil {
		s.revoke(ctx, lease)
		return false, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	if !resp.Succeeded {
		s.revoke(ctx, lease)
	}
	return resp.Succeeded, nil
}

func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.kv.Delete(ctx, s.key(key), clientv3.WithPrevKV())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	if len(resp.PrevKvs) == 0 {
		return nil, kv.ErrNotFound
	}
	return resp.PrevKvs[0].Value, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.kv.Delete(ctx, s.key(k)); err != nil {
			return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		}
	}
	return nil
}

func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := s.key(key)
	for attempt := 0; attempt < maxIncrRetries; attempt++ {
		resp, err := s.kv.Get(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		}

		if len(resp.Kvs) == 0 {
			created, err := s.putIf(ctx, clientv3.Compare(clientv3.CreateRevision(k), "=", 0), k, []byte("1"), window)
			if err != nil {
				return 0, err
			}
			if created {
				return 1, nil
			}
			continue
		}

		current := resp.Kvs[0]
		n, err := strconv.ParseInt(string(current.Value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("counter %q holds non-integer value", key)
		}
		next := strconv.FormatInt(n+1, 10)
		// keep the existing lease so the window does not slide
		txn, err := s.kv.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(k), "=", current.ModRevision)).
			Then(clientv3.OpPut(k, next, clientv3.WithIgnoreLease())).
			Commit()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		}
		if txn.Succeeded {
			return n + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: counter %q contended", kv.ErrUnavailable, key)
}

func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]kv.Entry, error) {
	resp, err := s.kv.Get(ctx, s.key(prefix), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	entries := make([]kv.Entry, 0, len(resp.Kvs))
	for _, item := range resp.Kvs {
		entries = append(entries, kv.Entry{
			Key:   string(item.Key)[len(s.prefix):],
			Value: item.Value,
		})
	}
	return entries, nil
}
