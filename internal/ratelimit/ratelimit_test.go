package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "issues", limit, window), s
}

func TestAllowUnderLimit(t *testing.T) {
	limiter, _ := setupLimiter(t, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "user-1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
}

func TestRejectOverLimit(t *testing.T) {
	limiter, _ := setupLimiter(t, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, _ := limiter.Allow(ctx, "user-1"); !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", retryAfter)
	}
}

func TestLimitIsPerUser(t *testing.T) {
	limiter, _ := setupLimiter(t, 1, time.Hour)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "user-1"); !allowed {
		t.Fatal("first attempt for user-1 should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "user-2"); !allowed {
		t.Fatal("first attempt for user-2 should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "user-1"); allowed {
		t.Fatal("second attempt for user-1 should be rejected")
	}
}

func TestWindowResets(t *testing.T) {
	limiter, s := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "user-1"); !allowed {
		t.Fatal("first attempt should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "user-1"); allowed {
		t.Fatal("second attempt should be rejected")
	}

	s.FastForward(2 * time.Minute)

	if allowed, _, _ := limiter.Allow(ctx, "user-1"); !allowed {
		t.Fatal("attempt after window reset should be allowed")
	}
}
