package service

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryFunc matches the retrier hooks of the assessment pipeline and the
// conversation manager.
type RetryFunc = func(ctx context.Context, op func() error) error

// NewRetrier retries ErrUpstreamUnavailable with exponential backoff, up to
// maxTries attempts in total. Every other error is returned at once.
func NewRetrier(maxTries int, initialInterval time.Duration) RetryFunc {
	if maxTries < 1 {
		maxTries = 1
	}
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}

	return func(ctx context.Context, op func() error) error {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initialInterval

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			err := op()
			if err == nil {
				return struct{}{}, nil
			}
			if errors.Is(err, consultation.ErrUpstreamUnavailable) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		},
			backoff.WithBackOff(b),
			backoff.WithMaxTries(uint(maxTries)),
		)
		return err
	}
}
