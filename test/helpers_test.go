//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/kv"
	"github.com/MrEthical07/blogAuth/kv/etcdstore"
	"github.com/MrEthical07/blogAuth/kv/redisstore"
	"github.com/MrEthical07/blogAuth/providers"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// backend opens a fresh, isolated store for one test.
type backend struct {
	name string
	open func(t *testing.T) kv.Store
}

func backends(t *testing.T) []backend {
	t.Helper()
	out := []backend{{
		name: "miniredis",
		open: func(t *testing.T) kv.Store {
			t.Helper()
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			t.Cleanup(mr.Close)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return redisstore.New(rdb, "it")
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		out = append(out, backend{
			name: "redis:" + addr,
			open: func(t *testing.T) kv.Store {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				if err := rdb.Ping(context.Background()).Err(); err != nil {
					t.Skipf("redis not reachable: %v", err)
				}
				t.Cleanup(func() { _ = rdb.Close() })
				return redisstore.New(rdb, "it-"+uuid.NewString())
			},
		})
	}

	if endpoints := os.Getenv("ETCD_ENDPOINTS"); endpoints != "" {
		out = append(out, backend{
			name: "etcd:" + endpoints,
			open: func(t *testing.T) kv.Store {
				t.Helper()
				store, err := etcdstore.New(context.Background(), etcdstore.Config{
					Endpoints:   strings.Split(endpoints, ","),
					DialTimeout: 3 * time.Second,
					Prefix:      "/blogauth-it/" + uuid.NewString() + "/",
				})
				if err != nil {
					t.Skipf("etcd not reachable: %v", err)
				}
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		})
	}
	return out
}

// eachBackend runs fn as a subtest per backend.
func eachBackend(t *testing.T, fn func(t *testing.T, store kv.Store)) {
	t.Helper()
	for _, b := range backends(t) {
		b := b
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

type captureMailer struct {
	mu   sync.Mutex
	sent []providers.Message
}

func (m *captureMailer) Send(_ context.Context, msg providers.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func (m *captureMailer) tokenFor(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To != to {
			continue
		}
		if match := tokenParam.FindStringSubmatch(m.sent[i].HTML); match != nil {
			return match[1]
		}
	}
	t.Fatalf("no verification mail for %s", to)
	return ""
}

func newEngine(t *testing.T, store kv.Store) (*blogAuth.Engine, *captureMailer) {
	t.Helper()
	cfg := blogAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("integration-secret-integration!!")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Registration.RequireCaptcha = false
	cfg.Registration.IPLimit = 1000
	cfg.EmailVerification.SiteURL = "https://blog.example"
	cfg.EmailVerification.From = "noreply@blog.example"

	mailer := &captureMailer{}
	engine, err := blogAuth.New().
		WithConfig(cfg).
		WithStore(store).
		WithMailer(mailer).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mailer
}

// race starts n goroutines at once and collects their errors.
func race(n int, fn func(i int) error) []error {
	start := make(chan struct{})
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}
