package monitor

import (
	"context"
	"time"
)

// RetryPolicy decides how long the poll loop waits before its next
// iteration. Every source error is treated as transient: the monitor never
// gives up, it only backs off. A failed iteration leaves the cursor where it
// was, so the same range is retried after FailureBackoff.
type RetryPolicy struct {
	PollInterval   time.Duration
	FailureBackoff time.Duration
}

// Delay returns the wait after an iteration that ended with err.
func (p RetryPolicy) Delay(err error) time.Duration {
	if err != nil {
		if p.FailureBackoff > 0 {
			return p.FailureBackoff
		}
		return 2 * p.PollInterval
	}
	return p.PollInterval
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
