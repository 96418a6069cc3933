// Package retry wraps a single remote call with circuit breaking, rate limit
// admission, and bounded retries with exponential backoff and jitter.
//
// The executor owns the per-attempt control flow: consult the breaker, wait
// for a token, invoke the operation, classify the failure, and back off
// before the next attempt. Backoff sleeps are cancellable so job
// cancellation and deadlines abort a retry loop immediately. The coordinator
// above never retries; all retry policy lives here.
package retry
