// Package retry runs an operation a bounded number of times with an optional delay between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how fast an operation is retried
type Policy struct {
	Attempts    int           // total attempts, including the first
	Delay       time.Duration // wait between attempts; zero retries immediately
	Exponential bool          // double the delay after every failed attempt
}

// Permanent marks err as not worth retrying. Do returns err unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error from op is returned, joined with
// the context error when ctx ended the retries.
func Do(ctx context.Context, name string, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	var lastErr error
	operation := func() error {
		attempt++
		slog.Debug("Running operation", "operation", name, "attempt", attempt, "max_attempts", attempts)
		lastErr = op(ctx)
		return lastErr
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("Operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(attempts-1)), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err != nil && lastErr != nil && err != lastErr && err == ctx.Err() {
		// backoff reports only the context error once ctx is done
		return errors.Join(lastErr, err)
	}
	return err
}

func (p Policy) backOff() backoff.BackOff {
	if !p.Exponential || p.Delay <= 0 {
		return backoff.NewConstantBackOff(p.Delay)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Delay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = 60 * time.Second
	eb.MaxElapsedTime = 0 // bounded by attempts, not time
	eb.Reset()
	return eb
}
