package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTokensNeverExceedRate(t *testing.T) {
	l := New(2.0)

	// Freshly created bucket starts full.
	if tokens := l.Tokens(); tokens > 2.0 {
		t.Errorf("initial tokens = %f, want <= 2.0", tokens)
	}

	// A long idle period must not accumulate extra burst credit.
	time.Sleep(1500 * time.Millisecond)
	if tokens := l.Tokens(); tokens > 2.0 {
		t.Errorf("tokens after idle = %f, want <= 2.0", tokens)
	}

	// Draining below zero is impossible.
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if tokens := l.Tokens(); tokens < 0 {
			t.Errorf("tokens went negative: %f", tokens)
		}
	}
}

func TestThirdAcquireWaits(t *testing.T) {
	// rate=2.0: two immediate grants from the full bucket, then the third
	// call must wait roughly half a second for the next token.
	l := New(2.0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 400*time.Millisecond {
		t.Errorf("three acquires took %v, want >= ~0.5s of cumulative wait", elapsed)
	}
}

func TestRateBoundOverWindow(t *testing.T) {
	// Drain the initial burst, then count completed acquires over a window.
	// The count must stay within rate*T plus one in-flight token.
	const rate = 10.0
	l := New(rate)
	ctx := context.Background()

	for i := 0; i < int(rate); i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("drain: %v", err)
		}
	}

	window := 500 * time.Millisecond
	deadline := time.Now().Add(window)
	completed := 0
	for time.Now().Before(deadline) {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		completed++
	}

	limit := int(rate*window.Seconds()) + 1
	// Allow one extra grant for scheduler jitter at the window edge.
	if completed > limit+1 {
		t.Errorf("completed %d acquires in %v, want <= %d", completed, window, limit)
	}
}

func TestConcurrentAcquiresSerialize(t *testing.T) {
	const rate = 5.0
	l := New(rate)
	ctx := context.Background()

	const callers = 15
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// 15 grants at 5/s with a 5-token initial burst needs at least ~2s.
	if elapsed < 1500*time.Millisecond {
		t.Errorf("%d concurrent acquires completed in %v, rate bound violated", callers, elapsed)
	}
}

func TestAcquireCancellation(t *testing.T) {
	l := New(1.0)
	ctx := context.Background()

	// Empty the bucket so the next acquire has to wait a full second.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Acquire(cancelCtx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled acquire did not return promptly")
	}
}

func TestSetRate(t *testing.T) {
	l := New(2.0)
	l.SetRate(10.0)
	if got := l.Rate(); got != 10.0 {
		t.Errorf("Rate() = %f, want 10.0", got)
	}

	// Lowering the rate clamps the balance to the new ceiling.
	l.SetRate(1.0)
	if tokens := l.Tokens(); tokens > 1.0 {
		t.Errorf("tokens after SetRate(1.0) = %f, want <= 1.0", tokens)
	}

	// Invalid rates are ignored.
	l.SetRate(0)
	if got := l.Rate(); got != 1.0 {
		t.Errorf("Rate() after SetRate(0) = %f, want 1.0", got)
	}
}
