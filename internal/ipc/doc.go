// Package ipc implements the control channel between the loom CLI and the
// daemon: JSON-RPC over a Unix domain socket. The server side wraps the
// daemon, the client side is consumed by CLI commands.
package ipc
