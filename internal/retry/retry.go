package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// Policy describes how an operation is retried.
//
// A Policy is a configuration-time constant: construct it once, share it by
// value. The zero value is normalized to sane defaults by Do.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration
	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64
	// MaxBackoff caps the per-attempt delay.
	MaxBackoff time.Duration
	// JitterFraction adds a random delay in [0, backoff*JitterFraction).
	// Zero disables jitter.
	JitterFraction float64

	// OnBackoff, when set, is invoked before each backoff wait with the
	// attempt number that just failed. Used for logging and counters; the
	// engine itself stays silent.
	OnBackoff func(attempt int, delay time.Duration, err error)
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Second
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	return p
}

// backoff returns the wait before attempt+1. attempt starts at 1.
func (p Policy) backoff(attempt int, rng *rand.Rand) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.JitterFraction > 0 && rng != nil {
		d += time.Duration(rng.Float64() * p.JitterFraction * float64(d))
	}
	return d
}

// AfterHint is implemented by errors that carry an explicit retry delay,
// typically from an HTTP 429 Retry-After header. The engine respects the hint
// (bounded by MaxBackoff) instead of the computed backoff when it is larger.
type AfterHint interface {
	error
	RetryAfter() time.Duration
}

// ExhaustedError wraps the last retryable error after all attempts failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Retryable reports whether the engine would retry err.
//
// Context cancellation is never retried: the caller went away. Tagged errors
// answer for themselves; bare net errors and everything unclassified are
// treated as transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var tagged interface{ Retryable() bool }
	if errors.As(err, &tagged) {
		return tagged.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return true
}

// Do runs op under the policy.
//
// A terminal error is returned un-retried. A retryable error is re-attempted
// after backoff until the policy is exhausted, in which case the last error is
// returned wrapped in *ExhaustedError. The backoff wait honors ctx
// cancellation.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempt, rng)
		var hint AfterHint
		if errors.As(err, &hint) {
			if d := hint.RetryAfter(); d > delay {
				delay = d
				if delay > p.MaxBackoff {
					delay = p.MaxBackoff
				}
			}
		}
		if p.OnBackoff != nil {
			p.OnBackoff(attempt, delay, err)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return ctx.Err()
		case <-t.C:
		}
	}
	return &ExhaustedError{Attempts: p.MaxAttempts, Last: last}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
