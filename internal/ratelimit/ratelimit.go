// Package ratelimit provides the dual-window ceiling applied to upstream
// provider calls: at most perSec acquisitions in any trailing second and
// perMin in any trailing minute.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter combines a per-second and a per-minute token bucket. An
// acquisition must clear both. Burst is kept at 1 so acquisitions stay
// evenly spaced instead of clustering at window edges.
type Limiter struct {
	sec *rate.Limiter
	min *rate.Limiter
}

// New creates a Limiter with the given ceilings. Non-positive ceilings
// disable the corresponding window.
func New(perSec, perMin int) *Limiter {
	l := &Limiter{}
	if perSec > 0 {
		l.sec = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	if perMin > 0 {
		l.min = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
	}
	return l
}

// Acquire blocks until both windows have capacity or ctx is cancelled.
// The coarser minute window is cleared first so a long minute wait cannot
// stale out a just-acquired second token.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.min != nil {
		if err := l.min.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit (per-minute): %w", err)
		}
	}
	if l.sec != nil {
		if err := l.sec.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit (per-second): %w", err)
		}
	}
	return nil
}
