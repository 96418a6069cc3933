package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State captures the breaker position in its lifecycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the canonical lower-case state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Allow while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

// TransitionFunc observes state changes. It is invoked outside the breaker
// lock, so implementations may log or publish events freely.
type TransitionFunc func(from, to State)

// Breaker isolates a persistently failing dependency. Transitions follow
// closed -> open (threshold consecutive failures), open -> half-open (open
// duration elapsed), half-open -> closed (probe success) or back to open
// (probe failure). Any success while closed resets the failure count.
type Breaker struct {
	mu            sync.Mutex
	threshold     int
	openDuration  time.Duration
	state         State
	failures      int
	enteredAt     time.Time
	probeInFlight bool

	now      func() time.Time
	onChange TransitionFunc
}

// New constructs a closed breaker that trips after threshold consecutive
// failures and stays open for openDuration before probing.
func New(threshold int, openDuration time.Duration) (*Breaker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive, got %d", threshold)
	}
	if openDuration <= 0 {
		return nil, fmt.Errorf("open duration must be positive, got %s", openDuration)
	}
	return &Breaker{
		threshold:    threshold,
		openDuration: openDuration,
		state:        StateClosed,
		now:          time.Now,
	}, nil
}

// OnStateChange registers a transition observer. Must be called before the
// breaker is shared between goroutines.
func (b *Breaker) OnStateChange(fn TransitionFunc) {
	b.onChange = fn
}

// Allow reports whether a call may proceed. While open it rejects until the
// open duration has elapsed, then admits exactly one probe; concurrent
// callers during the probe are rejected as if the breaker were still open.
// Every nil return must be paired with exactly one RecordOutcome or Cancel.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateOpen:
		if b.now().Sub(b.enteredAt) < b.openDuration {
			b.mu.Unlock()
			return ErrOpen
		}
		notify := b.transitionLocked(StateHalfOpen)
		b.probeInFlight = true
		b.mu.Unlock()
		notify()
		return nil
	case StateHalfOpen:
		if b.probeInFlight {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probeInFlight = true
		b.mu.Unlock()
		return nil
	default:
		b.mu.Unlock()
		return ErrOpen
	}
}

// RecordOutcome feeds the result of a permitted call back into the machine.
func (b *Breaker) RecordOutcome(success bool) {
	b.mu.Lock()
	notify := func() {}

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
		} else {
			b.failures++
			if b.failures >= b.threshold {
				notify = b.transitionLocked(StateOpen)
			}
		}
	case StateHalfOpen:
		b.probeInFlight = false
		if success {
			notify = b.transitionLocked(StateClosed)
		} else {
			notify = b.transitionLocked(StateOpen)
		}
	case StateOpen:
		// Outcome from a call permitted before the trip; the open window
		// already accounts for the failure burst.
	}

	b.mu.Unlock()
	notify()
}

// Cancel releases a permit that never turned into a call, such as when rate
// limit admission timed out after Allow. It does not count as an outcome.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	if b.state == StateHalfOpen {
		b.probeInFlight = false
	}
	b.mu.Unlock()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count while closed.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// transitionLocked moves to the target state and returns the deferred
// observer notification. Callers must hold the lock and invoke the returned
// function after releasing it.
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	b.state = to
	b.enteredAt = b.now()
	switch to {
	case StateOpen:
		b.failures = 0
		b.probeInFlight = false
	case StateClosed:
		b.failures = 0
		b.probeInFlight = false
	}
	if b.onChange == nil || from == to {
		return func() {}
	}
	fn := b.onChange
	return func() { fn(from, to) }
}
