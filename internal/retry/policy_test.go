package retry

import (
	"testing"
	"time"

	"loom/internal/config"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseBackoff: 100 * time.Millisecond, MaxBackoff: time.Minute}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for attempt, expected := range want {
		if got := p.Backoff(attempt); got != expected {
			t.Fatalf("Backoff(%d) = %s, want %s", attempt, got, expected)
		}
	}
}

func TestBackoffIsMonotonicallyNonDecreasing(t *testing.T) {
	p := Policy{MaxAttempts: 20, BaseBackoff: 50 * time.Millisecond, MaxBackoff: 5 * time.Second}
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		got := p.Backoff(attempt)
		if got < prev {
			t.Fatalf("backoff decreased at attempt %d: %s < %s", attempt, got, prev)
		}
		if got > p.MaxBackoff {
			t.Fatalf("backoff exceeded cap at attempt %d: %s", attempt, got)
		}
		prev = got
	}
	if prev != p.MaxBackoff {
		t.Fatalf("expected backoff to reach cap, got %s", prev)
	}
}

func TestBackoffSurvivesLargeAttemptCounts(t *testing.T) {
	p := Policy{MaxAttempts: 100, BaseBackoff: time.Second, MaxBackoff: 30 * time.Second}
	if got := p.Backoff(90); got != p.MaxBackoff {
		t.Fatalf("expected cap on overflow-prone attempt, got %s", got)
	}
	if got := p.Backoff(-1); got != p.BaseBackoff {
		t.Fatalf("negative attempt should clamp to base, got %s", got)
	}
}

func TestDelayCapsJitteredBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseBackoff: 80 * time.Millisecond, MaxBackoff: 80 * time.Millisecond}
	if got := p.Delay(0, 1.49); got != p.MaxBackoff {
		t.Fatalf("jitter above 1.0 must not escape the cap, got %s", got)
	}
	if got := p.Delay(0, 0.5); got != 40*time.Millisecond {
		t.Fatalf("Delay(0, 0.5) = %s, want 40ms", got)
	}

	// Cap applies to the jittered product, not to its inputs: with the
	// uncapped backoff at 160ms, a 0.6 factor still lands under the cap.
	p = Policy{MaxAttempts: 5, BaseBackoff: 40 * time.Millisecond, MaxBackoff: 100 * time.Millisecond}
	if got := p.Delay(2, 0.6); got != 96*time.Millisecond {
		t.Fatalf("Delay(2, 0.6) = %s, want 96ms", got)
	}
	if got := p.Delay(2, 1.4); got != p.MaxBackoff {
		t.Fatalf("jittered product above the cap must clamp, got %s", got)
	}
	if got := p.Delay(40, 0.5); got != p.MaxBackoff {
		t.Fatalf("overflow-prone attempt must clamp to the cap, got %s", got)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.Retry{MaxAttempts: 4, BaseBackoffMS: 250, MaxBackoffMS: 10_000})
	if p.MaxAttempts != 4 {
		t.Fatalf("unexpected attempts: %d", p.MaxAttempts)
	}
	if p.BaseBackoff != 250*time.Millisecond || p.MaxBackoff != 10*time.Second {
		t.Fatalf("unexpected durations: %+v", p)
	}
}
