// Package kv defines the key-value directory contract that every piece of
// mutable state in blogAuth is stored behind.
//
// # Contract
//
// A [Store] offers get/put/delete/list-by-prefix with optional per-key TTL, plus
// four primitives that let callers close read-then-write races without
// transactions:
//
//   - PutIfAbsent: conditional insert (uniqueness reservations).
//   - PutIfPresent: conditional update (record saves never resurrect a deleted key).
//   - Take: atomic get-and-delete (single-use tokens).
//   - Incr: atomic counter with a fixed window set on first hit (rate limits).
//
// Expired keys are indistinguishable from missing keys: both yield [ErrNotFound].
//
// # What this package must NOT do
//
//   - Know about users, tokens, or any other domain record.
//   - Expose backend clients through the interface.
package kv
