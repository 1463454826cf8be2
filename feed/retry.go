package feed

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// RetryConfig retries a failing operation with a doubling delay.
type RetryConfig struct {
	// Retries is the number of attempts after the first one.
	Retries   int
	BaseDelay time.Duration
	Logger    *log.Logger
	// OnRetry is called before every additional attempt.
	OnRetry func()
}

// Do runs fn until it succeeds, the retries are used up or ctx ends. It returns the
// last error from fn, or ctx's error when ctx ended during a back-off.
func (r RetryConfig) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	delay := r.BaseDelay
	err := fn(ctx)
	for attempt := 1; err != nil && attempt <= r.Retries; attempt++ {
		if ctx.Err() != nil {
			return err
		}
		if r.Logger != nil {
			r.Logger.Warn("retrying", "op", name, "attempt", attempt, "of", r.Retries, "in", delay, "err", err)
		}
		if r.OnRetry != nil {
			r.OnRetry()
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
		err = fn(ctx)
	}
	return err
}
