package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"loom/internal/breaker"
	"loom/internal/config"
	"loom/internal/metrics"
	"loom/internal/ratelimit"
	"loom/internal/registry"
	"loom/internal/services"
)

const testDep = "unit-api"

func testRegistry(t *testing.T, dep config.Dependency, retryCfg config.Retry) (*registry.Registry, *metrics.Collector) {
	t.Helper()
	cfg := config.Default()
	cfg.Retry = retryCfg
	cfg.Dependencies = map[string]config.Dependency{testDep: dep}
	collector := metrics.NewCollector()
	reg, err := registry.New(&cfg, collector, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg, collector
}

func fastDep() config.Dependency {
	return config.Dependency{
		Rate:             1000,
		Burst:            1000,
		MaxWaitMS:        50,
		FailureThreshold: 100,
		OpenDurationMS:   1000,
	}
}

func fastRetry(attempts int) config.Retry {
	return config.Retry{MaxAttempts: attempts, BaseBackoffMS: 1, MaxBackoffMS: 4}
}

func newTestExecutor(reg *registry.Registry) *Executor {
	exec := NewExecutor(reg, nil)
	exec.jitter = func() float64 { return 1 }
	return exec
}

func TestExecuteExhaustsAttemptBudget(t *testing.T) {
	reg, collector := testRegistry(t, fastDep(), fastRetry(3))
	exec := newTestExecutor(reg)

	calls := 0
	finalErr := errors.New("upstream flake 3")
	err := exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		if calls == 3 {
			return finalErr
		}
		return fmt.Errorf("upstream flake %d", calls)
	})
	if calls != 3 {
		t.Fatalf("expected exactly 3 invocations, got %d", calls)
	}
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if !errors.Is(err, finalErr) {
		t.Fatalf("expected final attempt error to be wrapped, got %v", err)
	}
	if FailureKind(err) != "max_retries" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
	snap, ok := collector.Dependency(testDep)
	if !ok || snap.Attempts != 3 || snap.Failures != 3 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestExecuteRecoversAfterTransientFailures(t *testing.T) {
	reg, collector := testRegistry(t, fastDep(), fastRetry(5))
	exec := newTestExecutor(reg)

	calls := 0
	err := exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
	dep, _ := reg.Get(testDep)
	if dep.Breaker.State() != breaker.StateClosed || dep.Breaker.Failures() != 0 {
		t.Fatalf("expected breaker reset after success, state=%s failures=%d",
			dep.Breaker.State(), dep.Breaker.Failures())
	}
	snap, _ := collector.Dependency(testDep)
	if snap.Attempts != 3 || snap.Successes != 1 || snap.Failures != 2 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestExecutePermanentFailureShortCircuits(t *testing.T) {
	reg, _ := testRegistry(t, fastDep(), fastRetry(5))
	exec := newTestExecutor(reg)

	calls := 0
	permanent := services.Wrap(services.ErrValidation, "", "", "bad video id", errors.New("400"))
	err := exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		return permanent
	})
	if calls != 1 {
		t.Fatalf("permanent failures must not retry, got %d invocations", calls)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if errors.Is(err, ErrMaxRetries) {
		t.Fatalf("permanent failure must not be wrapped in ErrMaxRetries")
	}
	if FailureKind(err) != "validation" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
}

func TestExecuteFastFailsWhenBreakerOpen(t *testing.T) {
	dep := fastDep()
	dep.FailureThreshold = 2
	reg, collector := testRegistry(t, dep, fastRetry(5))
	exec := newTestExecutor(reg)

	calls := 0
	err := exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	// Third admission hits the freshly opened breaker without invoking op.
	if calls != 2 {
		t.Fatalf("expected breaker to trip after 2 invocations, got %d", calls)
	}
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if FailureKind(err) != "circuit_open" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
	snap, _ := collector.Dependency(testDep)
	if snap.CircuitOpen != 1 {
		t.Fatalf("expected one circuit rejection, got %d", snap.CircuitOpen)
	}

	// Subsequent calls reject immediately while the window holds.
	calls = 0
	err = exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 0 || !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected immediate rejection, calls=%d err=%v", calls, err)
	}
}

func TestExecuteRateLimitRejectionReleasesProbe(t *testing.T) {
	dep := fastDep()
	dep.Rate = 0.01
	dep.Burst = 1
	dep.MaxWaitMS = 1
	reg, collector := testRegistry(t, dep, fastRetry(3))
	exec := newTestExecutor(reg)

	if err := exec.Execute(context.Background(), testDep, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	calls := 0
	err := exec.Execute(context.Background(), testDep, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("rate-limited call must not invoke op, got %d", calls)
	}
	if !errors.Is(err, ratelimit.ErrAdmissionTimeout) {
		t.Fatalf("expected admission timeout, got %v", err)
	}
	if FailureKind(err) != "rate_limited" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
	snap, _ := collector.Dependency(testDep)
	if snap.RateLimited != 1 {
		t.Fatalf("expected one rate-limit rejection, got %d", snap.RateLimited)
	}
	d, _ := reg.Get(testDep)
	if d.Breaker.State() != breaker.StateClosed {
		t.Fatalf("breaker should stay closed after cancelled permit, state=%s", d.Breaker.State())
	}
}

func TestExecuteStopsOnContextCancellation(t *testing.T) {
	reg, _ := testRegistry(t, fastDep(), config.Retry{MaxAttempts: 10, BaseBackoffMS: 5000, MaxBackoffMS: 10000})
	exec := newTestExecutor(reg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := exec.Execute(ctx, testDep, func(context.Context) error {
		calls++
		return errors.New("flaky")
	})
	if calls != 1 {
		t.Fatalf("expected cancellation during first backoff, got %d invocations", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if FailureKind(err) != "cancelled" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
}

func TestExecuteStopsOnDeadline(t *testing.T) {
	reg, _ := testRegistry(t, fastDep(), config.Retry{MaxAttempts: 10, BaseBackoffMS: 5000, MaxBackoffMS: 10000})
	exec := newTestExecutor(reg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := exec.Execute(ctx, testDep, func(context.Context) error {
		return errors.New("slow upstream")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if FailureKind(err) != "deadline" {
		t.Fatalf("unexpected failure kind %q", FailureKind(err))
	}
}

func TestExecuteUnknownDependency(t *testing.T) {
	reg, _ := testRegistry(t, fastDep(), fastRetry(3))
	exec := newTestExecutor(reg)

	err := exec.Execute(context.Background(), "no-such-api", func(context.Context) error { return nil })
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestJitterStaysWithinBand(t *testing.T) {
	exec := NewExecutor(nil, nil)
	for i := 0; i < 1000; i++ {
		v := exec.jitter()
		if v < 0.5 || v >= 1.5 {
			t.Fatalf("jitter out of band: %f", v)
		}
	}
}
