package retry

import (
	"time"

	"loom/internal/config"
)

// Policy bounds the retry loop for one dependency.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// PolicyFromConfig converts the configuration representation.
func PolicyFromConfig(cfg config.Retry) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff(),
		MaxBackoff:  cfg.MaxBackoff(),
	}
}

// Backoff returns the pre-jitter delay before retrying after the given
// zero-based attempt: base doubled per attempt, capped at the maximum.
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := p.uncapped(attempt)
	if backoff > p.MaxBackoff {
		return p.MaxBackoff
	}
	return backoff
}

// Delay is the actual sleep before the retry after the given zero-based
// attempt. The cap applies to the jittered product, so a factor above 1.0
// cannot push a sleep past MaxBackoff.
func (p Policy) Delay(attempt int, jitter float64) time.Duration {
	delay := time.Duration(float64(p.uncapped(attempt)) * jitter)
	if delay > p.MaxBackoff || delay < 0 {
		return p.MaxBackoff
	}
	return delay
}

func (p Policy) uncapped(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	backoff := p.BaseBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		// Past twice the cap every jitter factor in [0.5, 1.5) lands at
		// or above MaxBackoff, so stop before the doubling overflows.
		if backoff < 0 || backoff >= 2*p.MaxBackoff {
			return 2 * p.MaxBackoff
		}
	}
	return backoff
}
