// Command blogauth-loadtest measures access token verification and refresh
// throughput against a Redis-backed engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/kv/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		users       = flag.Int("users", 2000, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (verify + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		namespace   = flag.String("namespace", "loadtest", "key namespace")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := newEngine(redisstore.New(client, *namespace))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	fmt.Printf("registering %d users...\n", *users)
	tokens, seedStats := seed(ctx, engine, *users, *concurrency)
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no users registered")
		os.Exit(1)
	}

	verifyStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, err := engine.Verify(ctx, tokens[r.Intn(len(tokens))].AccessToken)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		_, err := engine.Refresh(ctx, tokens[r.Intn(len(tokens))].RefreshToken)
		return err
	})

	fmt.Println("---- results ----")
	printStats("register", seedStats)
	printStats("verify", verifyStats)
	printStats("refresh", refreshStats)
}

func newEngine(store *redisstore.Store) (*blogAuth.Engine, error) {
	cfg := blogAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-secret-loadtest-secret!")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Registration.RequireCaptcha = false
	cfg.Registration.IPLimit = 1 << 30

	return blogAuth.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

func seed(ctx context.Context, engine *blogAuth.Engine, users, concurrency int) ([]blogAuth.TokenPair, phaseStats) {
	tokens := make([]blogAuth.TokenPair, users)
	ok := make([]bool, users)
	stats := runPhase(users, concurrency, 104729, func() func(*rand.Rand) error {
		var cursor int64
		return func(*rand.Rand) error {
			i := int(atomic.AddInt64(&cursor, 1)) - 1
			res, err := engine.Register(blogAuth.WithClientIP(ctx, "10.0.0.1"), blogAuth.RegisterInput{
				Username: fmt.Sprintf("user%06d", i),
				Email:    fmt.Sprintf("user%06d@loadtest.example", i),
				Name:     fmt.Sprintf("Load User %d", i),
				Password: "loadtest-password",
			})
			if err != nil {
				return err
			}
			tokens[i] = res.Tokens
			ok[i] = true
			return nil
		}
	}())

	out := tokens[:0]
	for i, pair := range tokens {
		if ok[i] {
			out = append(out, pair)
		}
	}
	return out, stats
}

// runPhase calls op ops times across concurrency workers and records the
// latency of each call.
func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
