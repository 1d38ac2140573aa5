package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// Keys mirror what the web layer builds for the credential endpoints:
// route path plus client IP.
const loginKey = "/login|203.0.113.7"

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "bookshelf:ratelimit:login", limit, window)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	return limiter, srv
}

func TestAllowUpToLimitThenBlocks(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow(loginKey) {
			t.Fatalf("attempt %d should be within quota", i+1)
		}
	}
	if limiter.Allow(loginKey) {
		t.Fatalf("attempt over quota should be blocked")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	if !limiter.Allow(loginKey) {
		t.Fatalf("first IP should be within quota")
	}
	if limiter.Allow(loginKey) {
		t.Fatalf("first IP should now be blocked")
	}
	if !limiter.Allow("/login|198.51.100.4") {
		t.Fatalf("a different IP must have its own window")
	}
}

func TestRedisOutageBlocksRequests(t *testing.T) {
	limiter, srv := newTestLimiter(t, 5, time.Minute)

	srv.Close()
	if limiter.Allow(loginKey) {
		t.Fatalf("limiter must fail closed when redis is unreachable")
	}
}

func TestConstructorRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name   string
		addr   string
		limit  int
		window time.Duration
	}{
		{"zero limit", "localhost:6379", 0, time.Minute},
		{"empty addr", "", 5, time.Minute},
		{"zero window", "localhost:6379", 5, 0},
		{"sub-millisecond window", "localhost:6379", 5, 500 * time.Microsecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limiter, err := NewRedisFixedWindowLimiter(tc.addr, "", "bookshelf:ratelimit:login", tc.limit, tc.window)
			if err == nil || limiter != nil {
				t.Fatalf("expected constructor error for %s", tc.name)
			}
		})
	}
}
