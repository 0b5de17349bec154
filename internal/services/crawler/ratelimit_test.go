package crawler

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_EnforcesSpacingPerOrigin(t *testing.T) {
	limiter := NewRateLimiter(0.5) // one request per 2s
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "http://a.example/one"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	start := time.Now()
	if err := limiter.Acquire(ctx, "http://a.example/two"); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 1900*time.Millisecond {
		t.Errorf("same-origin spacing: got %v, want >= ~2s", elapsed)
	}
}

func TestRateLimiter_OriginsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(0.5)
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "http://a.example/"); err != nil {
		t.Fatalf("Acquire a: %v", err)
	}

	// A different origin must not inherit a.example's delay.
	start := time.Now()
	if err := limiter.Acquire(ctx, "http://b.example/"); err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cross-origin Acquire blocked for %v", elapsed)
	}
}

func TestRateLimiter_CancelledWait(t *testing.T) {
	limiter := NewRateLimiter(0.1) // 10s spacing
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "http://a.example/"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(cancelCtx, "http://a.example/"); err == nil {
		t.Error("Acquire with expired context: got nil error")
	}
}

func TestRateLimiter_UnparseableURLPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(0.1)
	if err := limiter.Acquire(context.Background(), "not a url"); err != nil {
		t.Errorf("Acquire on unparseable URL: %v", err)
	}
}
