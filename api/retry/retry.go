// Package retry runs an operation a bounded number of times with a delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/morikuni/failure/v2"
)

// Strategy selects how the delay between attempts grows
type Strategy string

const (
	// Constant waits the same delay before every retry
	Constant Strategy = "constant"
	// Exponential doubles the delay after each failed attempt
	Exponential Strategy = "exponential"
)

// Strategies lists every supported strategy
var Strategies = []Strategy{Constant, Exponential}

func (s Strategy) String() string {
	return string(s)
}

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case Constant, Exponential:
		return true
	default:
		return false
	}
}

// Policy describes an attempt budget and the waiting between attempts.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Delay is the wait after the first failed attempt.
	Delay    time.Duration
	Strategy Strategy

	// Sleep waits for d or until ctx is done. nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// MaxBackoff caps exponential delays, unless Delay itself is larger
const MaxBackoff = time.Hour

// Backoff returns the delay to wait after the given failed attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch p.Strategy {
	case Exponential:
		if p.Delay <= 0 {
			return p.Delay
		}
		limit := max(MaxBackoff, p.Delay)
		shift := uint(attempt - 1)
		if shift >= 63 || p.Delay > limit>>shift {
			return limit
		}
		return p.Delay << shift
	default:
		return p.Delay
	}
}

// Do calls fn until it succeeds, returns an error that retryable rejects, or the attempt budget is spent.
// fn receives the 1-based attempt number. Do returns the number of attempts made and the last error.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func(attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) || attempt == maxAttempts {
			return attempt, err
		}
		if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
			return attempt, failure.Wrap(serr, failure.Context{"last_error": err.Error()})
		}
	}
	return maxAttempts, err
}

func wait(ctx context.Context, d time.Duration) error {
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
