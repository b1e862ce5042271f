package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidtube/backend/internal/config"
)

// Credential endpoint scopes guarded by AuthRateLimiter.
const (
	ScopeLogin    = "login"
	ScopeRegister = "register"
	ScopeRefresh  = "refresh"
)

// bucketIdle is how long an untouched client bucket is kept.
const bucketIdle = 10 * time.Minute

// Budget allows Requests events per Window with Burst tokens of headroom.
type Budget struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (b Budget) newLimiter() *rate.Limiter {
	requests, window, burst := b.Requests, b.Window, b.Burst
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(requests)), burst)
}

type bucketKey struct {
	scope  string
	client string
}

type bucket struct {
	tokens  *rate.Limiter
	touched time.Time
}

// AuthRateLimiter throttles the credential endpoints. Every scope has its own
// budget and every client address gets a separate bucket within a scope.
// Scopes without a budget are not limited.
type AuthRateLimiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	buckets map[bucketKey]*bucket
	swept   time.Time
	now     func() time.Time
}

// NewAuthRateLimiter builds the login, register and refresh budgets from cfg.
// They share RateWindow and RateBurst.
func NewAuthRateLimiter(cfg config.AuthConfig) *AuthRateLimiter {
	return NewScopedRateLimiter(map[string]Budget{
		ScopeLogin:    {Requests: cfg.RateLimit, Window: cfg.RateWindow, Burst: cfg.RateBurst},
		ScopeRegister: {Requests: cfg.RegisterRateLimit, Window: cfg.RateWindow, Burst: cfg.RateBurst},
		ScopeRefresh:  {Requests: cfg.RefreshRateLimit, Window: cfg.RateWindow, Burst: cfg.RateBurst},
	})
}

// NewScopedRateLimiter limits each scope in budgets independently.
func NewScopedRateLimiter(budgets map[string]Budget) *AuthRateLimiter {
	return &AuthRateLimiter{
		budgets: budgets,
		buckets: make(map[bucketKey]*bucket),
		now:     time.Now,
	}
}

// Allow spends one token from the bucket of client within scope.
func (l *AuthRateLimiter) Allow(scope, client string) bool {
	budget, ok := l.budgets[scope]
	if !ok {
		return true
	}
	if client == "" {
		client = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	key := bucketKey{scope: scope, client: client}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: budget.newLimiter()}
		l.buckets[key] = b
	}
	b.touched = now
	if now.Sub(l.swept) > bucketIdle {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	return b.tokens.AllowN(now, 1)
}

// Tracked reports how many scope and client buckets are held.
func (l *AuthRateLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *AuthRateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.touched) > bucketIdle {
			delete(l.buckets, key)
		}
	}
	l.swept = now
}

// WithClock swaps the time source; tests use it to step time.
func (l *AuthRateLimiter) WithClock(now func() time.Time) *AuthRateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}
