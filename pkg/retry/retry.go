// Package retry runs an operation under a set of independent retry policies.
// Each policy claims the errors it applies to and keeps its own attempt
// budget, so throttling waits never use up the budget for other failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff selects how the wait grows between attempts.
type Backoff int

const (
	Fixed Backoff = iota
	Exponential
)

// Policy describes how one class of errors is retried.
type Policy struct {
	Name string
	// MaxAttempts is the number of failed calls of this class tolerated
	// before giving up, counting the first one; 0 means unlimited.
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Backoff     Backoff
	// Applies reports whether err belongs to this policy.
	Applies func(err error) bool
	// DelayFor overrides Delay for a specific error (for example per status code).
	DelayFor func(err error) time.Duration
}

func (p Policy) wait(err error, n int) time.Duration {
	d := p.Delay
	if p.DelayFor != nil {
		if v := p.DelayFor(err); v > 0 {
			d = v
		}
	}
	if p.Backoff == Exponential && n > 1 {
		for i := 1; i < n; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// ExhaustedError wraps the last error once a policy has no attempts left.
type ExhaustedError struct {
	Policy   string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry %s exhausted after %d attempts: %v", e.Policy, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retrier applies the first matching policy to each failure.
type Retrier struct {
	Policies []Policy
	// Notify is called before every wait.
	Notify func(policy string, attempt int, err error, wait time.Duration)
}

// Do calls fn until it succeeds, fails with an error no policy claims, a
// policy runs out of attempts, or ctx ends.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	used := make([]int, len(r.Policies))
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		idx := r.match(err)
		if idx < 0 {
			return err
		}
		p := r.Policies[idx]
		used[idx]++
		if p.MaxAttempts > 0 && used[idx] >= p.MaxAttempts {
			return &ExhaustedError{Policy: p.Name, Attempts: used[idx], Err: err}
		}

		d := p.wait(err, used[idx])
		if r.Notify != nil {
			r.Notify(p.Name, used[idx], err, d)
		}
		if err := Sleep(ctx, d); err != nil {
			return err
		}
	}
}

func (r *Retrier) match(err error) int {
	for i, p := range r.Policies {
		if p.Applies == nil || p.Applies(err) {
			return i
		}
	}
	return -1
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExhausted reports whether err came from a policy that ran out of attempts.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}
