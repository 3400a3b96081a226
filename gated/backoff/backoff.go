package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const maxShift = 62

// ErrNoAttempts is returned by Retry when attempts is not positive.
var ErrNoAttempts = errors.New("backoff: attempts must be at least 1")

// Exponential returns base * 2^attempt, saturating instead of overflowing.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	attempt = min(max(attempt, 0), maxShift)

	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return base * time.Duration(multiplier)
}

// FullJitter returns a random duration in [0, delay).
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(delay))) // #nosec G404 -- jitter does not need a CSPRNG
}

// Policy bounds a retry loop.
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// Delay returns the jittered wait before retry number attempt, capped at Max.
func (p Policy) Delay(attempt int) time.Duration {
	delay := Exponential(p.Base, attempt)
	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}

	return FullJitter(delay)
}

// Retry calls fn until it succeeds, attempts run out or ctx is done. The last
// error from fn is returned, joined with the context error when ctx ended the
// loop. onRetry, when not nil, is called before each wait.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if p.Attempts < 1 {
		return ErrNoAttempts
	}

	var err error

	for attempt := range p.Attempts {
		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt == p.Attempts-1 {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		if sleepErr := SleepWithContext(ctx, p.Delay(attempt)); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}

	return fmt.Errorf("after %d attempts: %w", p.Attempts, err)
}

// SleepWithContext sleeps for duration unless ctx is done first.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
