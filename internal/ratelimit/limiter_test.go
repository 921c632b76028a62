package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_BurstThenWait(t *testing.T) {
	t.Parallel()

	l := New(5, 1)
	ctx := context.Background()

	start := time.Now()
	for i := range 5 {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("expected first 5 acquisitions to be immediate, took %v", elapsed)
	}

	sixth := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire 6: %v", err)
	}
	if waited := time.Since(sixth); waited < 700*time.Millisecond {
		t.Errorf("expected 6th acquisition to wait about 1s, waited %v", waited)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	t.Parallel()

	l := New(1, 0.1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("expected error for a wait longer than the context deadline")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("expected deadline related error, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	l := New(0, -1)
	if got := l.limiter.Burst(); got != DefaultCapacity {
		t.Errorf("expected burst %d, got %d", DefaultCapacity, got)
	}
	if got := float64(l.limiter.Limit()); got != DefaultRefill {
		t.Errorf("expected refill %v, got %v", DefaultRefill, got)
	}
	if tokens := l.limiter.Tokens(); tokens < float64(DefaultCapacity)-0.01 {
		t.Errorf("expected a full bucket, got %v tokens", tokens)
	}
}
