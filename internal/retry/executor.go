package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"loom/internal/breaker"
	"loom/internal/logging"
	"loom/internal/metrics"
	"loom/internal/ratelimit"
	"loom/internal/registry"
	"loom/internal/services"
)

// ErrMaxRetries wraps the final error after the attempt budget is exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// Operation is one opaque remote call against a dependency. Implementations
// must honour context cancellation and return classified errors (see the
// services package sentinels).
type Operation func(context.Context) error

// Executor drives the retry loop for calls against registered dependencies.
type Executor struct {
	registry *registry.Registry
	logger   *slog.Logger

	jitter func() float64
}

// NewExecutor constructs an executor over the given registry.
func NewExecutor(reg *registry.Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		registry: reg,
		logger:   logging.NewComponentLogger(logger, "retry-executor"),
		// Uniform in [0.5, 1.5) so concurrent jobs hitting the same
		// dependency spread their retries apart.
		jitter: func() float64 { return 0.5 + rand.Float64() },
	}
}

// Execute runs op against the named dependency under its retry policy.
// Breaker rejections and admission timeouts fail immediately; retryable
// failures back off and loop; permanent failures short-circuit. When the
// attempt budget runs out the last error is wrapped in ErrMaxRetries.
func (e *Executor) Execute(ctx context.Context, dependency string, op Operation) error {
	dep, err := e.registry.Get(dependency)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "", "resolve dependency", err)
	}
	policy := PolicyFromConfig(dep.Retry)
	collector := e.registry.Metrics()
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldDependency, dep.Name))

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := dep.Breaker.Allow(); err != nil {
			collector.RecordRejection(dep.Name, metrics.RejectionCircuitOpen)
			logger.Warn("call rejected by circuit breaker",
				logging.String(logging.FieldEventType, "circuit_rejected"),
				logging.Int(logging.FieldAttempt, attempt+1),
			)
			return fmt.Errorf("dependency %s: %w", dep.Name, err)
		}

		if err := dep.Limiter.Acquire(ctx); err != nil {
			// The breaker issued a permit that never became a call.
			dep.Breaker.Cancel()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			collector.RecordRejection(dep.Name, metrics.RejectionRateLimited)
			logger.Warn("call rejected by rate limiter",
				logging.String(logging.FieldEventType, "rate_limited"),
				logging.Int(logging.FieldAttempt, attempt+1),
			)
			return fmt.Errorf("dependency %s: %w", dep.Name, err)
		}

		start := time.Now()
		opErr := op(ctx)
		latency := time.Since(start)

		success := opErr == nil
		dep.Breaker.RecordOutcome(success)
		collector.RecordAttempt(dep.Name, latency, success)

		if success {
			if attempt > 0 {
				logger.Info("call recovered after retries",
					logging.String(logging.FieldEventType, "retry_recovered"),
					logging.Int(logging.FieldAttempt, attempt+1),
				)
			}
			return nil
		}

		lastErr = opErr
		if !services.Retryable(opErr) {
			logger.Warn("permanent failure, not retrying",
				logging.String(logging.FieldEventType, "retry_short_circuit"),
				logging.String("classification", services.Classification(opErr)),
				logging.Int(logging.FieldAttempt, attempt+1),
				logging.Error(opErr),
			)
			return opErr
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Delay(attempt, e.jitter())
		logger.Debug("transient failure, backing off",
			logging.String(logging.FieldEventType, "retry_backoff"),
			logging.Int(logging.FieldAttempt, attempt+1),
			logging.Duration("backoff", delay),
			logging.Error(opErr),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: dependency %s after %d attempts: %w",
		ErrMaxRetries, dep.Name, policy.MaxAttempts, lastErr)
}

// FailureKind names the executor-level failure category for stage results.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, breaker.ErrOpen):
		return "circuit_open"
	case errors.Is(err, ratelimit.ErrAdmissionTimeout):
		return "rate_limited"
	case errors.Is(err, ErrMaxRetries):
		return "max_retries"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return services.Classification(err)
	}
}

// sleepContext waits d or until the context is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
