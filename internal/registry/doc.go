// Package registry constructs and owns the per-dependency resilience state:
// one rate limiter, one circuit breaker, and one metrics series per
// configured external service. The registry is built once at startup and
// injected into the retry executor and coordinator, which keeps breaker and
// limiter state explicit and testable instead of hiding it in globals.
package registry
