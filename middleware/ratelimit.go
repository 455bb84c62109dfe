package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/errs"
)

// ErrTooManyRequests is written when an address exceeds its request rate.
var ErrTooManyRequests = errs.New(errs.KindRateLimited, "too many requests, try again later")

// RateLimitConfig configures [RateLimiter]. Rate is in requests per second.
type RateLimitConfig struct {
	Rate            rate.Limit
	Burst           int
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig allows 10 requests per minute per address with a burst of 5.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(10.0 / 60.0),
		Burst:           5,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

type addrLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client address in process memory. It sits in
// front of the login endpoint; failure counting and blocking stay in the Engine.
type RateLimiter struct {
	config RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*addrLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts the idle-entry cleanup loop. Call Stop to end it.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.Rate <= 0 {
		config.Rate = def.Rate
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*addrLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and a Retry-After header. The
// address comes from [lockana.ClientIPFromContext], so [ClientIP] must run first;
// requests without one share a single bucket.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := lockana.ClientIPFromContext(r.Context())
			if !rl.Allow(addr, time.Now()) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.config.Rate)))
				WriteError(w, ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow reports whether addr may make a request at now.
func (rl *RateLimiter) Allow(addr string, now time.Time) bool {
	rl.mu.Lock()
	al, ok := rl.limiters[addr]
	if !ok {
		al = &addrLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[addr] = al
	}
	al.lastAccess = now
	rl.mu.Unlock()

	return al.limiter.AllowN(now, 1)
}

// Len returns the number of tracked addresses.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for addr, al := range rl.limiters {
		if al.lastAccess.Before(cutoff) {
			delete(rl.limiters, addr)
		}
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	return int(math.Ceil(1.0 / float64(limit)))
}
