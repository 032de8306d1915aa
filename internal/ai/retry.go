package ai

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds the retry loop for transient provider failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// InitialDelay before the second attempt
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts
	Multiplier float64
}

// DefaultRetryPolicy matches the retry budget used by both built-in
// providers: three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn until it succeeds, fails with a non-retryable error, the
// attempt budget is exhausted, or ctx is canceled. It returns the attempt
// count alongside the last error so callers can report how hard they tried.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	delay := policy.InitialDelay
	var err error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if !IsRetryable(err) || attempt == policy.MaxAttempts {
			return attempt, err
		}

		wait := delay
		var pe *ProviderError
		if errors.As(err, &pe) && pe.RetryAfter > 0 {
			wait = time.Duration(pe.RetryAfter) * time.Second
		}
		if policy.MaxDelay > 0 && wait > policy.MaxDelay {
			wait = policy.MaxDelay
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return policy.MaxAttempts, err
}
