// Package test holds the integration suite. It runs every kv backend that
// is reachable: miniredis always, a real Redis when REDIS_ADDR is set and
// etcd when ETCD_ENDPOINTS is set.
//
//	go test -tags integration ./test/...
package test
