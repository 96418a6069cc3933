package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestBreaker(t *testing.T, threshold int, openFor time.Duration) (*Breaker, *time.Time) {
	t.Helper()
	b, err := New(threshold, openFor)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	if _, err := New(0, time.Second); err == nil {
		t.Fatal("expected error for zero threshold")
	}
	if _, err := New(3, 0); err == nil {
		t.Fatal("expected error for zero open duration")
	}
}

func TestOpensExactlyAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(t, 3, 10*time.Second)

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("allow %d failed: %v", i, err)
		}
		b.RecordOutcome(false)
	}
	if b.State() != StateClosed {
		t.Fatalf("breaker opened one failure early: %v", b.State())
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("third allow failed: %v", err)
	}
	b.RecordOutcome(false)
	if b.State() != StateOpen {
		t.Fatalf("expected open after threshold failures, got %v", b.State())
	}

	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen while cooling down, got %v", err)
	}
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t, 3, 10*time.Second)

	b.RecordOutcome(false)
	b.RecordOutcome(false)
	b.RecordOutcome(true)
	b.RecordOutcome(false)
	b.RecordOutcome(false)

	if b.State() != StateClosed {
		t.Fatal("non-consecutive failures must not trip the breaker")
	}
	if b.Failures() != 2 {
		t.Fatalf("expected failure count 2, got %d", b.Failures())
	}
}

func TestHalfOpenAfterOpenDuration(t *testing.T) {
	b, now := newTestBreaker(t, 1, 10*time.Second)

	b.RecordOutcome(false)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	*now = now.Add(9 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected rejection before open duration, got %v", err)
	}

	*now = now.Add(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe permit after open duration: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half_open, got %v", b.State())
	}
}

func TestHalfOpenProbeIsExclusive(t *testing.T) {
	b, now := newTestBreaker(t, 1, time.Second)
	b.RecordOutcome(false)
	*now = now.Add(2 * time.Second)

	first := b.Allow()
	second := b.Allow()
	if first != nil {
		t.Fatalf("first caller should hold the probe: %v", first)
	}
	if !errors.Is(second, ErrOpen) {
		t.Fatalf("second concurrent caller should be rejected, got %v", second)
	}
}

func TestProbeSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(t, 1, time.Second)
	b.RecordOutcome(false)
	*now = now.Add(2 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe permit failed: %v", err)
	}
	b.RecordOutcome(true)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after probe success, got %v", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("calls should pass after recovery: %v", err)
	}
}

func TestProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(t, 1, 10*time.Second)
	b.RecordOutcome(false)
	*now = now.Add(11 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe permit failed: %v", err)
	}
	b.RecordOutcome(false)
	if b.State() != StateOpen {
		t.Fatalf("expected reopen after probe failure, got %v", b.State())
	}

	// Entry time must be refreshed: still rejecting just before the window.
	*now = now.Add(9 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected rejection inside refreshed window, got %v", err)
	}
}

func TestCancelReleasesProbe(t *testing.T) {
	b, now := newTestBreaker(t, 1, time.Second)
	b.RecordOutcome(false)
	*now = now.Add(2 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe permit failed: %v", err)
	}
	b.Cancel()
	if err := b.Allow(); err != nil {
		t.Fatalf("probe should be available again after cancel: %v", err)
	}
}

func TestOnStateChangeObservesTransitions(t *testing.T) {
	b, now := newTestBreaker(t, 1, time.Second)

	var mu sync.Mutex
	var transitions []string
	b.OnStateChange(func(from, to State) {
		mu.Lock()
		transitions = append(transitions, from.String()+">"+to.String())
		mu.Unlock()
	})

	b.RecordOutcome(false)
	*now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe permit failed: %v", err)
	}
	b.RecordOutcome(true)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"closed>open", "open>half_open", "half_open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}
