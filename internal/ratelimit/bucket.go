package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAdmissionTimeout indicates no token became available within the
// configured admission budget.
var ErrAdmissionTimeout = errors.New("rate limit admission timed out")

// Limiter is a token bucket guarding one external dependency. Refill and
// decrement happen inside a single critical section so concurrent callers can
// never over-grant.
type Limiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	tokens  float64
	last    time.Time
	maxWait time.Duration

	now func() time.Time
}

// New constructs a limiter granting rate tokens per second with the given
// burst capacity. The bucket starts full. maxWait bounds how long Acquire
// will wait for a token; zero means reject immediately when empty.
func New(rate, burst float64, maxWait time.Duration) (*Limiter, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", rate)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("burst must be positive, got %v", burst)
	}
	if maxWait < 0 {
		maxWait = 0
	}
	l := &Limiter{
		rate:    rate,
		burst:   burst,
		tokens:  burst,
		maxWait: maxWait,
		now:     time.Now,
	}
	l.last = l.now()
	return l, nil
}

// Acquire takes one token, suspending the caller until a token is available
// or the admission budget elapses. Returns ErrAdmissionTimeout when the
// budget cannot cover the projected wait, or the context error when the
// caller is cancelled first.
func (l *Limiter) Acquire(ctx context.Context) error {
	deadline := l.now().Add(l.maxWait)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		l.refillLocked()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		need := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		remaining := deadline.Sub(l.now())
		if remaining <= 0 || need > remaining {
			return fmt.Errorf("%w: needed %s, budget %s", ErrAdmissionTimeout, need.Round(time.Millisecond), l.maxWait)
		}

		timer := time.NewTimer(need)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens reports the current token level after applying lazy refill.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.tokens
}

// Burst returns the configured burst capacity.
func (l *Limiter) Burst() float64 {
	return l.burst
}

// refillLocked credits tokens for elapsed time. Negative elapsed time (clock
// skew) is treated as zero.
func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.last)
	if elapsed < 0 {
		elapsed = 0
	}
	l.last = now
	l.tokens += elapsed.Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
