// Package retry implements capped exponential backoff for transient
// upstream failures. Cancellation is never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how many attempts an operation gets and how long to
// back off between them. Delay before attempt k+1 is
// min(MaxDelay, BaseDelay*2^(k-1)).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the provider defaults: 4 attempts, 500ms base,
// 6s ceiling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond, MaxDelay: 6 * time.Second}
}

func (p Policy) sanitized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 6 * time.Second
	}
	return p
}

// Delay returns the backoff before the given attempt (1-based retry
// counter: Delay(1) follows the first failure).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.sanitized()
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, attempts are exhausted, or ctx is
// cancelled. A cancellation error from op is returned immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	p = p.sanitized()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}
