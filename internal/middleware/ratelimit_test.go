package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClock drives a limiter without sleeping
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)}
	rl.now = clock.Now
	return rl, clock
}

// ============================================================================
// NewRateLimiter Tests (Configuration)
// ============================================================================

func TestNewRateLimiter_Defaults(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	if rl.rate != 100 || rl.window != time.Minute || rl.burst != 20 || rl.cleanup != 5*time.Minute {
		t.Errorf("unexpected defaults: rate=%d window=%v burst=%d cleanup=%v", rl.rate, rl.window, rl.burst, rl.cleanup)
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(RateLimitConfig{Cleanup: time.Millisecond})

	rl.Stop()
	rl.Stop()
}

// ============================================================================
// Allow() Tests
// ============================================================================

func TestAllow_ConsumesRatePlusBurst(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{Rate: 3, Burst: 2, Window: time.Minute})

	for i := 0; i < 5; i++ {
		allowed, remaining, _ := rl.Allow("account:abc")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != 4-i {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, 4-i, remaining)
		}
	}

	if allowed, remaining, _ := rl.Allow("account:abc"); allowed || remaining != 0 {
		t.Errorf("sixth request should be denied, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestAllow_DifferentKeys_SeparateBuckets(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{Rate: 1, Burst: 1, Window: time.Minute})

	rl.Allow("a")
	rl.Allow("a")
	if allowed, _, _ := rl.Allow("a"); allowed {
		t.Error("key a should be exhausted")
	}
	if allowed, _, _ := rl.Allow("b"); !allowed {
		t.Error("key b should have its own bucket")
	}
}

func TestAllow_Refill(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, RateLimitConfig{Rate: 10, Burst: 1, Window: 10 * time.Second})

	for i := 0; i < 11; i++ {
		rl.Allow("k")
	}
	if allowed, _, _ := rl.Allow("k"); allowed {
		t.Fatal("bucket should be empty")
	}

	// One token per second
	clock.Advance(3 * time.Second)
	if allowed, remaining, _ := rl.Allow("k"); !allowed || remaining != 2 {
		t.Errorf("expected partial refill to 3 tokens, got allowed=%v remaining=%d", allowed, remaining)
	}

	clock.Advance(time.Hour)
	if allowed, remaining, _ := rl.Allow("k"); !allowed || remaining != 10 {
		t.Errorf("expected full refill capped at rate+burst, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestAllow_ResetTime(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, RateLimitConfig{Rate: 5, Window: 30 * time.Second})

	_, _, reset := rl.Allow("k")
	if want := clock.Now().Add(30 * time.Second); !reset.Equal(want) {
		t.Errorf("expected reset %v, got %v", want, reset)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{Rate: 50, Burst: 10, Window: time.Minute})

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _, _ := rl.Allow("shared"); allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 60 {
		t.Errorf("expected exactly 60 grants, got %d", granted)
	}
}

// ============================================================================
// Bucket Store Tests
// ============================================================================

func TestBuckets_BoundedByMaxKeys(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{MaxKeys: 3})

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		rl.Allow(k)
	}
	if rl.Len() != 3 {
		t.Errorf("expected 3 tracked clients, got %d", rl.Len())
	}
	// The least recently used key was evicted and starts fresh
	if _, remaining, _ := rl.Allow("a"); remaining != rl.rate+rl.burst-1 {
		t.Errorf("expected a fresh bucket for evicted key, remaining=%d", remaining)
	}
}

func TestCleanupExpired_RemovesStaleBuckets(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, RateLimitConfig{Window: time.Minute})

	rl.Allow("stale")
	clock.Advance(90 * time.Second)
	rl.Allow("fresh")
	clock.Advance(45 * time.Second)

	rl.cleanupExpired()

	if _, ok := rl.buckets.Peek("stale"); ok {
		t.Error("stale bucket should be removed")
	}
	if _, ok := rl.buckets.Peek("fresh"); !ok {
		t.Error("fresh bucket should be kept")
	}
}

// ============================================================================
// RateLimit Middleware Tests
// ============================================================================

func TestRateLimitMiddleware_HeadersAnd429(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{Rate: 1, Burst: 1, Window: time.Minute})
	h := RateLimit(rl)(okHandler("ok"))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "1" {
			t.Errorf("expected limit header 1, got %q", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("unexpected Retry-After %q", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected remaining 0, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitMiddleware_KeysByAccountThenHost(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, RateLimitConfig{Rate: 1, Burst: 1})
	h := RateLimit(rl)(okHandler("ok"))

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "203.0.113.7:51234"
	h.ServeHTTP(httptest.NewRecorder(), anon)

	authed := httptest.NewRequest(http.MethodGet, "/", nil)
	authed = authed.WithContext(context.WithValue(authed.Context(), UserIDKey, "account:abc"))
	h.ServeHTTP(httptest.NewRecorder(), authed)

	if _, ok := rl.buckets.Peek("203.0.113.7"); !ok {
		t.Error("anonymous request should be keyed by host without port")
	}
	if _, ok := rl.buckets.Peek("account:abc"); !ok {
		t.Error("authenticated request should be keyed by account")
	}
}
