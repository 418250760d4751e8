// Package kvtest wires a miniredis-backed kv.Store for tests.
package kvtest

import (
	"testing"

	"github.com/MrEthical07/blogAuth/kv/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// New starts a miniredis server and returns it with a store bound to it.
// Both are closed on test cleanup.
func New(t testing.TB) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisstore.New(client, "")
}
