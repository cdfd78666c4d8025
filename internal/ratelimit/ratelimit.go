// Package ratelimit provides a token bucket limiter for pacing outbound
// NCBI E-utilities requests.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket with a ceiling equal to the configured
// rate: an idle period never accumulates more than one second's worth of
// burst capacity. Acquire never rejects; callers wait until a token is due.
//
// Acquisitions are serialized through a single mutex that is held across the
// wait as well as the bookkeeping, so concurrent callers queue behind each
// other and the long-run issue rate stays within the configured bound.
type Limiter struct {
	mu     sync.Mutex
	rate   float64
	tokens float64
	last   time.Time
}

// New creates a limiter allowing rate requests per second. The bucket starts
// full, so the first requests after startup are granted immediately.
func New(rate float64) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	return &Limiter{
		rate:   rate,
		tokens: rate,
		last:   time.Now(),
	}
}

// Acquire consumes one token, sleeping until one is available if the bucket
// is empty. Returns early only if ctx is cancelled; the token is not granted
// in that case.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return nil
	}

	wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		// The token matured during the wait and is spent by returning.
		l.last = time.Now()
		l.tokens = 0
		return nil
	}
}

// SetRate changes the request rate, clamping the current balance to the new
// ceiling. Used by config reload.
func (l *Limiter) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	l.rate = rate
	if l.tokens > rate {
		l.tokens = rate
	}
}

// Rate returns the configured requests-per-second rate.
func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// Tokens returns the current token balance after refilling.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// refill credits tokens proportional to elapsed time, capped at the rate.
// Caller must hold mu.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.rate {
		l.tokens = l.rate
	}
}
