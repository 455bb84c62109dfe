// Command lockana-loadtest drives concurrent logins, token validations and
// permission checks through a lockana Engine and reports latency percentiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/cipher"
	"github.com/MrEthical07/lockana/internal/logger"
)

type userState struct {
	username string
	secret   string
	token    string
}

type loadUsers struct {
	mu    sync.RWMutex
	users map[string]*lockana.User
}

func (p *loadUsers) FindByUsername(_ context.Context, username string) (*lockana.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[username]
	if !ok {
		return nil, lockana.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (p *loadUsers) UpdateSecret(_ context.Context, username, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[username]
	if !ok {
		return lockana.ErrUserNotFound
	}
	u.Secret = secret
	return nil
}

type params struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func main() {
	var p params
	flag.IntVar(&p.users, "users", 1000, "number of users to seed and log in")
	flag.IntVar(&p.concurrency, "concurrency", 64, "number of concurrent workers")
	flag.IntVar(&p.ops, "ops", 100000, "operations per phase (validate, authorize)")
	flag.StringVar(&p.redisAddr, "redis-addr", "", "redis address; if empty, LOCKANA_REDIS_ADDR env or miniredis is used")
	flag.StringVar(&p.prefix, "prefix", "lockana-load:", "redis key prefix")
	flag.Parse()

	if p.users <= 0 || p.concurrency <= 0 || p.ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if p.redisAddr == "" {
		p.redisAddr = os.Getenv(lockana.EnvRedisAddr)
	}

	if err := run(context.Background(), p, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "lockana-loadtest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p params, out io.Writer) error {
	var client redis.UniversalClient
	if p.redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		p.redisAddr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", p.redisAddr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", p.redisAddr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{p.redisAddr}})
	defer client.Close()

	signing, err := cipher.GenerateKey(cipher.KDFPBKDF2, 32)
	if err != nil {
		return err
	}
	encKey, err := cipher.GenerateKey(cipher.KDFPBKDF2, 32)
	if err != nil {
		return err
	}

	cfg := lockana.DefaultConfig()
	cfg.Token.SigningSecret = signing
	cfg.Encryption.Key = encKey
	cfg.Guard.KeyPrefix = p.prefix
	cfg.Audit.Enabled = false
	cfg.Permission.Roles = map[string][]string{"member": {"read"}}

	provider := &loadUsers{users: make(map[string]*lockana.User, p.users)}
	engine, err := lockana.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithLogger(logger.Discard()).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	states := make([]userState, p.users)
	fmt.Fprintf(out, "seeding %d users...\n", p.users)
	for i := range states {
		secret, err := engine.CreateSecret()
		if err != nil {
			return err
		}
		name := "load-" + uuid.NewString()
		states[i] = userState{username: name, secret: secret}
		provider.users[name] = &lockana.User{
			Username: name,
			Secret:   secret,
			Roles:    []lockana.Role{{Name: "member"}},
		}
	}

	var (
		firstErr  error
		firstOnce sync.Once
	)
	loginStats := runPhase(p.users, p.concurrency, 1, func(_ *rand.Rand, i int) error {
		st := &states[i]
		code, err := engine.GenerateCode(st.secret, time.Now())
		if err != nil {
			return err
		}
		res, err := engine.Login(ctx, st.username, code)
		if err != nil {
			firstOnce.Do(func() { firstErr = err })
			return err
		}
		st.token = res.AccessToken
		return nil
	})
	if loginStats.failures == int64(p.users) {
		return fmt.Errorf("every login failed: %w", firstErr)
	}

	validateStats := runPhase(p.ops, p.concurrency, 7919, func(r *rand.Rand, _ int) error {
		st := states[r.Intn(len(states))]
		if st.token == "" {
			return errors.New("no token")
		}
		_, err := engine.Validate(ctx, st.token, "member")
		return err
	})

	authorizeStats := runPhase(p.ops, p.concurrency, 6151, func(r *rand.Rand, _ int) error {
		st := states[r.Intn(len(states))]
		if st.token == "" {
			return errors.New("no token")
		}
		_, err := engine.Authorize(ctx, st.token, "read")
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "login", loginStats)
	printStats(out, "validate", validateStats)
	printStats(out, "authorize", authorizeStats)
	return nil
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
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
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
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

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
