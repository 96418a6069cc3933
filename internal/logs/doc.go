// Package logs reads the daemon log file for CLI consumption. It supports
// "last N lines" reads via a negative offset, incremental reads from a saved
// offset, and a bounded follow mode that polls for new lines until the
// caller's context or wait budget runs out.
package logs
