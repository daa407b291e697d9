package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	now := time.Unix(1_700_000_000, 0)
	limiter := Limiter{Client: client, Prefix: "test:", Now: func() time.Time { return now }}

	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "quote:10.0.0.1", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("unexpected remaining: %d", remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "quote:10.0.0.1", window, max)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected third request to be rejected")
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}

	now = now.Add(window + time.Millisecond)
	allowed, _, _, err = limiter.Allow(ctx, "quote:10.0.0.1", window, max)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("expected request after window to be allowed")
	}
}

func TestMemoryAllowSlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := &Memory{Now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, _ := limiter.Allow(ctx, "k", time.Second, 3)
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "k", time.Second, 3); allowed {
		t.Fatal("expected fourth request to be rejected")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "other", time.Second, 3); !allowed {
		t.Fatal("expected a different key to be independent")
	}

	now = now.Add(1100 * time.Millisecond)
	if allowed, remaining, _, _ := limiter.Allow(ctx, "k", time.Second, 3); !allowed || remaining != 2 {
		t.Fatalf("expected window to slide, allowed=%v remaining=%d", allowed, remaining)
	}
}
