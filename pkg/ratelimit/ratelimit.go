package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter paces operations at a fixed rate with optional jitter. It is safe
// for concurrent use; a zero-rate limiter never blocks, which lets callers
// treat "no limit configured" uniformly.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter creates a limiter allowing rps operations per second. Jitter is
// clamped to [0, 1] and randomizes the wait by up to that fraction of the
// interval. rps <= 0 yields a non-blocking limiter.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{jitter: jitter}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Wait blocks until the next permitted operation or until ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		if l.jitter <= 0 {
			return nil
		}
		// Random extra delay in [-jitter, +jitter] * interval. A ticker
		// already enforces the minimum spacing, so negative jitter just
		// means "go now".
		factor := (rand.Float64() * 2) - 1.0
		extra := time.Duration(float64(l.interval) * l.jitter * factor)
		if extra <= 0 {
			return nil
		}
		select {
		case <-time.After(extra):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop releases the limiter's ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
