// Package breaker implements a per-dependency circuit breaker.
//
// The breaker is a deterministic local state machine with three states:
// closed (calls pass through), open (calls are rejected immediately), and
// half-open (a single probe call tests recovery). It trips after a configured
// number of consecutive failures and re-closes only after a probe succeeds.
// It performs no I/O; callers report outcomes explicitly.
package breaker
