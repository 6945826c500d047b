// Package ratelimit paces page actions with randomized delays. Fixed-interval
// automation is trivially detectable, so every wait is jittered within a
// bounded range.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// HumanizedLimiter enforces a randomized minimum gap between actions.
type HumanizedLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewHumanizedLimiter(minDelay, maxDelay time.Duration) *HumanizedLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &HumanizedLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks until the jittered delay since the last action has elapsed,
// or the context is cancelled.
func (r *HumanizedLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.nextDelay()

	if elapsed < delay {
		timer := time.NewTimer(delay - elapsed)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *HumanizedLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	if max < min {
		max = min
	}
	r.maxDelay = max
}

func (r *HumanizedLimiter) nextDelay() time.Duration {
	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(r.maxDelay - r.minDelay)))
	return r.minDelay + jitter
}
