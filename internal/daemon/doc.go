// Package daemon hosts the long-running loom process. It enforces
// single-instance execution with a file lock, owns the orchestration
// coordinator and notification relay lifecycles, and serves the HTTP API
// used by the CLI and external tooling.
package daemon
