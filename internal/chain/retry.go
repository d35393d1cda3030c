package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Transient failure markers. Wrap an error with one of these to make
// Retry try again.
var (
	ErrRetryable = &custodyerr.CustodyError{
		Code:     "RETRYABLE_ERROR",
		Message:  "transient failure",
		ExitCode: custodyerr.ExitGeneral,
	}

	ErrRateLimited = &custodyerr.CustodyError{
		Code:     "RATE_LIMITED",
		Message:  "endpoint rate limit reached",
		ExitCode: custodyerr.ExitGeneral,
	}
)

// RetryConfig bounds Retry. MaxAttempts counts the first call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig is four attempts backing off 1s, 2s, 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
}

// Retry calls op until it succeeds, returns a non-transient error, or the
// attempts run out. Waits between attempts honor ctx.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var (
		out T
		err error
	)
	for attempt := range attempts {
		if out, err = op(); err == nil || !IsRetryable(err) {
			return out, err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff(attempt, cfg.BaseDelay, cfg.MaxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, ctx.Err()
		case <-timer.C:
		}
	}
	return out, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// backoff doubles base per attempt up to maxDelay and picks a point in the
// upper half of that window.
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := maxDelay
	if attempt < 32 && base<<attempt < maxDelay {
		d = base << attempt
	}
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(half) //nolint:gosec // G404: jitter only
}

// IsRetryable reports whether err is marked transient or is a deadline.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WrapRetryable marks err transient.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// ClassifyHTTPStatus marks 429 and 5xx responses transient and returns
// err unchanged for every other status.
func ClassifyHTTPStatus(status int, err error) error {
	switch {
	case err == nil:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case status >= http.StatusInternalServerError:
		return WrapRetryable(err)
	default:
		return err
	}
}
