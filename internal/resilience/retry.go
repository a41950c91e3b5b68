package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries of transient transport failures.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries everything.
	Retryable func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(err error, wait time.Duration)
}

// Retry runs op until it succeeds, returns a non-retryable error, ctx ends,
// or MaxTries attempts have been made.
func Retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}

	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(tries),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
