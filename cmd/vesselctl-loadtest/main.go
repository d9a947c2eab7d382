// vesselctl-loadtest drives many console clients against the in-process fake
// backend while access tokens are revoked underneath them, and reports how
// many refresh calls the burst of 401s produced.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/testserver"
	"github.com/MrEthical07/goSession/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const password = "load-test"

func main() {
	var (
		operators    = pflag.Int("operators", 16, "number of signed-in console clients")
		concurrency  = pflag.Int("concurrency", 64, "number of concurrent workers")
		ops          = pflag.Int("ops", 20000, "requests in the request phase")
		expireEvery  = pflag.Int("expire-every", 2000, "revoke every access token after this many requests; 0 disables")
		refreshDelay = pflag.Duration("refresh-delay", 5*time.Millisecond, "latency added to each refresh call")
		redisAddr    = pflag.String("redis-addr", "", "redis address for credential storage; if empty, REDIS_ADDR env or miniredis is used")
	)
	pflag.Parse()

	if *operators <= 0 || *concurrency <= 0 || *ops <= 0 || *expireEvery < 0 {
		fmt.Fprintln(os.Stderr, "operators, concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	rdb, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := testserver.New(testserver.Options{RefreshDelay: *refreshDelay})
	defer srv.Close()
	srv.Seed("schedules", map[string]any{"polCd": "CNSHA", "podCd": "USLAX", "vessel": "LOAD"})

	clients := make([]*goSession.Client, *operators)
	for i := range clients {
		email := fmt.Sprintf("op%d@example.com", i)
		srv.AddAccount(testserver.Account{Email: email, Password: password, Permissions: []string{permission.ScheduleList}})

		cfg := goSession.DefaultConfig()
		cfg.HTTP.BaseURL = srv.URL
		cfg.Audit.Enabled = false
		cfg.Storage.Backend = goSession.StorageRedis
		cfg.Storage.RedisPrefix = fmt.Sprintf("load:%d", i)

		c, err := goSession.New().WithConfig(cfg).WithRedis(rdb).WithHTTPClient(srv.Client()).Build(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client %d: %v\n", i, err)
			os.Exit(1)
		}
		defer c.Close()
		clients[i] = c
	}

	loginStats := runLoginPhase(ctx, clients)
	requestStats, expirations := runRequestPhase(ctx, srv, clients, *ops, *concurrency, *expireEvery)

	var queued, retried uint64
	for _, c := range clients {
		snap := c.MetricsSnapshot()
		queued += snap.Counters[goSession.MetricRefreshQueued]
		retried += snap.Counters[goSession.MetricRequestRetried]
	}

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("request", requestStats)
	fmt.Printf("refresh: revocations=%d calls=%d ceiling=%d queued=%d retried=%d\n",
		expirations,
		srv.Hits("/auth/token/refresh/"),
		expirations*int64(len(clients)),
		queued,
		retried,
	)
}

// openRedis connects to addr, REDIS_ADDR, or a fresh miniredis, in that order.
func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runLoginPhase(ctx context.Context, clients []*goSession.Client) phaseStats {
	var (
		wg        sync.WaitGroup
		failures  int64
		latencies = make([]time.Duration, len(clients))
	)

	start := time.Now()
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *goSession.Client) {
			defer wg.Done()
			t0 := time.Now()
			res := c.Login(ctx, fmt.Sprintf("op%d@example.com", i), password)
			latencies[i] = time.Since(t0)
			if !res.OK {
				atomic.AddInt64(&failures, 1)
			}
		}(i, c)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRequestPhase spreads ops schedule listings across the clients. Every
// expireEvery requests the server forgets all access tokens, so in-flight
// requests see 401s and queue behind one refresh per client.
func runRequestPhase(ctx context.Context, srv *testserver.Server, clients []*goSession.Client, ops, concurrency, expireEvery int) (phaseStats, int64) {
	var (
		wg          sync.WaitGroup
		cursor      int64
		failures    int64
		expirations int64
		latencies   = make([]time.Duration, 0, ops)
		mu          sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if expireEvery > 0 && i > 0 && i%expireEvery == 0 {
					srv.ExpireAccessTokens()
					atomic.AddInt64(&expirations, 1)
				}
				c := clients[r.Intn(len(clients))]
				t0 := time.Now()
				_, err := c.API().Schedules.List(ctx, nil)
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
	return computeStats(time.Since(start), latencies, failures), expirations
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
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
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
