package restface

import (
	"context"
	"errors"
	"time"
)

// Retryer decides whether a failed attempt is repeated. A new Retryer is
// created for every call, so implementations may keep state.
type Retryer interface {
	// Retry is called with the error of the last attempt. It sleeps
	// before returning true. Returning false ends the call with err.
	Retry(ctx context.Context, err error) bool
}

// RetryPolicy configures the default backoff retryer.
type RetryPolicy struct {
	// Period is the delay before the second attempt.
	Period time.Duration `validate:"gt=0"`

	// MaxPeriod caps the delay, which grows 1.5 times every attempt.
	MaxPeriod time.Duration `validate:"gtefield=Period"`

	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int `validate:"gte=1"`
}

// DefaultRetryPolicy is used unless WithRetryPolicy or WithRetryer is passed.
var DefaultRetryPolicy = RetryPolicy{
	Period:      100 * time.Millisecond,
	MaxPeriod:   time.Second,
	MaxAttempts: 5,
}

// NewRetryer returns a backoff retryer following the policy.
func (p RetryPolicy) NewRetryer() Retryer {
	return &backoffRetryer{policy: p, attempt: 1}
}

type backoffRetryer struct {
	policy  RetryPolicy
	attempt int
	now     func() time.Time
}

func (r *backoffRetryer) Retry(ctx context.Context, err error) bool {
	if r.attempt >= r.policy.MaxAttempts {
		return false
	}
	r.attempt++

	delay := r.nextPeriod()
	var retryable *RetryableError
	if errors.As(err, &retryable) && !retryable.RetryAfter.IsZero() {
		now := time.Now
		if r.now != nil {
			now = r.now
		}
		delay = retryable.RetryAfter.Sub(now())
		if delay > r.policy.MaxPeriod {
			delay = r.policy.MaxPeriod
		}
	}
	return sleep(ctx, delay)
}

// nextPeriod returns Period * 1.5^(attempt-2) capped at MaxPeriod.
func (r *backoffRetryer) nextPeriod() time.Duration {
	period := float64(r.policy.Period)
	for i := 2; i < r.attempt; i++ {
		period *= 1.5
		if period >= float64(r.policy.MaxPeriod) {
			return r.policy.MaxPeriod
		}
	}
	return time.Duration(period)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// NeverRetry creates a Retryer which never repeats calls.
func NeverRetry() Retryer {
	return neverRetry{}
}

type neverRetry struct{}

func (neverRetry) Retry(context.Context, error) bool {
	return false
}
