// Command gosession-loadtest measures how well clients coalesce concurrent
// token renewals and how fast navigation decisions are.
//
// It starts an in-process auth server, signs in a number of clients whose
// state lives in Redis (or miniredis), then runs two phases:
//
//	refresh: per client, many callers report a 401 at once
//	decide:  random navigations across the default route table
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/authserver"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var decidePaths = []string{
	"/", "/login", "/feed", "/member/jobs", "/member/entities/42",
	"/admin/reports", "/admin/institute/dashboard", "/verify-email",
}

func main() {
	var (
		clients     = flag.Int("clients", 32, "number of signed-in clients")
		callers     = flag.Int("callers", 16, "concurrent 401 reports per client per round")
		rounds      = flag.Int("rounds", 20, "refresh rounds")
		decides     = flag.Int("decides", 200000, "navigation decisions in the decide phase")
		concurrency = flag.Int("concurrency", 64, "workers in the decide phase")
		latency     = flag.Duration("refresh-latency", 5*time.Millisecond, "delay added to every refresh response")
		redisAddr   = flag.StringP("redis-addr", "r", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs", "storage key prefix")
		verbose     = flag.BoolP("verbose", "v", false, "log client activity")
	)
	flag.Parse()

	if *clients <= 0 || *callers <= 0 || *rounds <= 0 || *decides <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "clients, callers, rounds, decides and concurrency must be > 0")
		os.Exit(2)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	rdb, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	signer, err := jwt.NewSigner(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("gosession-loadtest-signing-key-0"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		os.Exit(1)
	}
	server, err := authserver.New(authserver.Config{
		Signer:         signer,
		Store:          storage.NewRedis(rdb, *prefix+":server"),
		Logger:         logger,
		RefreshLatency: *latency,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth server: %v\n", err)
		os.Exit(1)
	}
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx := context.Background()
	fleet, err := signIn(ctx, server, ts.URL, rdb, *prefix, *clients, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range fleet {
			c.Close()
		}
	}()

	refreshStats := runRefreshPhase(ctx, fleet, *callers, *rounds)
	serverCalls := server.RefreshCalls()
	decideStats := runDecidePhase(ctx, fleet, *decides, *concurrency)

	fmt.Println("---- results ----")
	printStats("refresh", refreshStats)
	fmt.Printf("refresh: reports=%d server_renewals=%d reuse_events=%d\n",
		refreshStats.ops, serverCalls, server.ReuseEvents())
	printStats("decide", decideStats)

	var redirects, renders uint64
	for _, c := range fleet {
		snap := c.MetricsSnapshot()
		redirects += snap.Counters[goSession.MetricNavigateRedirect]
		renders += snap.Counters[goSession.MetricNavigateRender]
	}
	fmt.Printf("decide: render=%d redirect=%d\n", renders, redirects)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

func signIn(ctx context.Context, server *authserver.Server, baseURL string, rdb redis.UniversalClient, prefix string, n int, logger zerolog.Logger) ([]*goSession.Client, error) {
	fleet := make([]*goSession.Client, n)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			email := fmt.Sprintf("user-%d@example.com", i)
			role := jwt.RoleMember
			if i%4 == 0 {
				role = jwt.RoleAdmin
			}
			if _, err := server.AddUser(email, "load-test-password", jwt.Subject{Role: role, IsVerified: i%2 == 0}); err != nil {
				return err
			}

			c, err := goSession.New().
				WithAuthAPI(authapi.NewHTTPClient(baseURL)).
				WithStorage(storage.NewRedis(rdb, fmt.Sprintf("%s:client:%d", prefix, i))).
				WithLogger(logger).
				Build()
			if err != nil {
				return err
			}
			fleet[i] = c
			if err := c.Initialize(gctx); err != nil {
				return err
			}
			_, err = c.Login(gctx, email, "load-test-password")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range fleet {
			if c != nil {
				c.Close()
			}
		}
		return nil, err
	}
	fmt.Printf("signed in %d clients in %s\n", n, time.Since(start).Round(time.Millisecond))
	return fleet, nil
}

func runRefreshPhase(ctx context.Context, fleet []*goSession.Client, callers, rounds int) phaseStats {
	var (
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, len(fleet)*callers*rounds)
	)

	start := time.Now()
	for r := 0; r < rounds; r++ {
		var g errgroup.Group
		for _, c := range fleet {
			for k := 0; k < callers; k++ {
				g.Go(func() error {
					t0 := time.Now()
					ok := c.HandleUnauthorized(ctx)
					d := time.Since(t0)
					if !ok {
						atomic.AddInt64(&failures, 1)
					}
					mu.Lock()
					latencies = append(latencies, d)
					mu.Unlock()
					return nil
				})
			}
		}
		_ = g.Wait()
	}
	return computeStats(time.Since(start), latencies, failures)
}

func runDecidePhase(ctx context.Context, fleet []*goSession.Client, ops, concurrency int) phaseStats {
	var (
		cursor    int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					break
				}
				c := fleet[rnd.Intn(len(fleet))]
				path := decidePaths[rnd.Intn(len(decidePaths))]
				t0 := time.Now()
				_, err := c.Decide(ctx, path)
				local = append(local, time.Since(t0))
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
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
		return phaseStats{total: total, failures: failures}
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

// percentile expects sorted samples.
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
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
