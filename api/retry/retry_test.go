package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var errTemporary = errors.New("temporary")
var errPermanent = errors.New("permanent")

func isTemporary(err error) bool {
	return errors.Is(err, errTemporary)
}

// recordSleep returns a Sleep func that records the requested delays instead of waiting
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestPolicyDo(t *testing.T) {
	tests := []struct {
		name         string
		strategy     Strategy
		results      []error
		wantAttempts int
		wantErr      error
		wantDelays   []time.Duration
	}{
		{
			name:         "Succeeds first time",
			strategy:     Constant,
			results:      []error{nil},
			wantAttempts: 1,
		},
		{
			name:         "Succeeds after retries",
			strategy:     Constant,
			results:      []error{errTemporary, errTemporary, nil},
			wantAttempts: 3,
			wantDelays:   []time.Duration{5 * time.Second, 5 * time.Second},
		},
		{
			name:         "Budget exhausted",
			strategy:     Constant,
			results:      []error{errTemporary, errTemporary, errTemporary},
			wantAttempts: 3,
			wantErr:      errTemporary,
			wantDelays:   []time.Duration{5 * time.Second, 5 * time.Second},
		},
		{
			name:         "Non-retryable error stops immediately",
			strategy:     Constant,
			results:      []error{errPermanent},
			wantAttempts: 1,
			wantErr:      errPermanent,
		},
		{
			name:         "Exponential delays",
			strategy:     Exponential,
			results:      []error{errTemporary, errTemporary, errTemporary},
			wantAttempts: 3,
			wantErr:      errTemporary,
			wantDelays:   []time.Duration{5 * time.Second, 10 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var delays []time.Duration
			p := Policy{
				MaxAttempts: 3,
				Delay:       5 * time.Second,
				Strategy:    tt.strategy,
				Sleep:       recordSleep(&delays),
			}

			calls := 0
			attempts, err := p.Do(context.Background(), isTemporary, func(attempt int) error {
				calls++
				if attempt != calls {
					t.Errorf("attempt = %d, want %d", attempt, calls)
				}
				return tt.results[attempt-1]
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.wantDelays, delays); diff != "" {
				t.Errorf("delays mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPolicyDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, Delay: time.Hour}
	attempts, err := p.Do(ctx, isTemporary, func(int) error {
		return errTemporary
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStrategyValid(t *testing.T) {
	for _, s := range Strategies {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Strategy("linear").Valid() {
		t.Error("linear should not be valid")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"Constant", Policy{Delay: 5 * time.Second, Strategy: Constant}, 7, 5 * time.Second},
		{"Exponential first", Policy{Delay: 2 * time.Second, Strategy: Exponential}, 1, 2 * time.Second},
		{"Exponential fourth", Policy{Delay: 2 * time.Second, Strategy: Exponential}, 4, 16 * time.Second},
		{"Exponential capped", Policy{Delay: 5 * time.Second, Strategy: Exponential}, 19, MaxBackoff},
		{"Large delay does not overflow", Policy{Delay: 24 * time.Hour, Strategy: Exponential}, 20, 24 * time.Hour},
		{"Shift beyond width", Policy{Delay: time.Second, Strategy: Exponential}, 100, MaxBackoff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Backoff(tt.attempt)
			if got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoff_NeverNegative(t *testing.T) {
	p := Policy{Delay: 10 * time.Minute, Strategy: Exponential}
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := p.Backoff(attempt)
		if d < prev {
			t.Fatalf("Backoff(%d) = %v, smaller than Backoff(%d) = %v", attempt, d, attempt-1, prev)
		}
		prev = d
	}
}
