// Package ratelimit implements per-dependency admission control with a lazy
// token bucket.
//
// Tokens accumulate continuously at the configured rate, capped at the burst
// size, and are computed on demand from elapsed time rather than by a
// background timer. Acquire suspends the calling goroutine cooperatively
// until a token is available or the admission budget elapses, so a saturated
// dependency slows its callers without blocking unrelated work.
package ratelimit
