// Package retry wraps venue adapter calls with classification-aware
// exponential backoff. It is generic over the wrapped call and keeps the
// original error reachable through errors.Is/As when attempts run out.
package retry

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/logger"
)

type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration

	// sleep is injectable for tests; nil means a real timer wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}
}

// WithSleep returns a copy of the policy using fn for inter-attempt waits.
func (p Policy) WithSleep(fn func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = fn
	return p
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
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

// ExhaustedError wraps the final attempt's error once the budget is spent.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts exhausted: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do invokes fn, retrying rate-limited failures with doubling delays. An
// unclassified failure is retried exactly once; fatal failures propagate on
// the spot. The zero value of T is returned alongside any error.
func Do[T any](ctx context.Context, name string, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, fmt.Errorf("%s: nil fn", name)
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := policy.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var lastErr error
	unknownRetried := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		class := Classify(err)
		switch class {
		case ClassFatal:
			return zero, err
		case ClassUnknown:
			if unknownRetried {
				return zero, err
			}
			unknownRetried = true
		}
		if attempt == maxAttempts {
			break
		}
		logger.Warnf("retry: %s attempt %d/%d failed (%s), next in %s: %v",
			name, attempt, maxAttempts, class, delay, err)
		if werr := policy.wait(ctx, delay); werr != nil {
			return zero, werr
		}
		delay *= 2
	}
	return zero, &ExhaustedError{Name: name, Attempts: maxAttempts, Err: lastErr}
}
