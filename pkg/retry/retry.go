// Package retry implements bounded retries with exponential backoff and
// jitter. Background jobs use it around storage calls that can fail
// transiently during failovers or connection churn.
//
// Every error is considered transient unless it is wrapped with Permanent
// or the context has been cancelled.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// PermanentError marks an error that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do gives up on it immediately. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Policy describes how many attempts to make and how long to wait between
// them. The delay before attempt n is Base*2^(n-1), capped at Cap, with up
// to Jitter of random spread added or removed.
type Policy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Jitter   float64
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.Base << (attempt - 1)
	if d > p.Cap || d <= 0 {
		d = p.Cap
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration(spread * (rand.Float64()*2 - 1))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retrier runs operations under a fixed Policy.
type Retrier struct {
	policy Policy
}

// New returns a Retrier for the given policy. Attempts below 1 is treated
// as a single attempt.
func New(p Policy) *Retrier {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return &Retrier{policy: p}
}

// DatabaseRetrier is tuned for Postgres calls: three quick attempts that
// stay well under typical statement timeouts.
func DatabaseRetrier() *Retrier {
	return New(Policy{
		Attempts: 3,
		Base:     50 * time.Millisecond,
		Cap:      time.Second,
		Jitter:   0.05,
	})
}

// Do runs op until it succeeds, returns a permanent error, exhausts the
// attempt budget, or ctx is cancelled. The error from the final attempt is
// returned, unwrapped from its Permanent marker if it had one.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}
		if IsPermanent(last) {
			return errors.Unwrap(last)
		}
		if attempt == r.policy.Attempts {
			return last
		}

		select {
		case <-ctx.Done():
			return last
		case <-time.After(r.policy.delay(attempt)):
		}
	}
}
