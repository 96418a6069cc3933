// Package notifications delivers push notifications about job and dependency
// lifecycle via ntfy. A Relay subscribes to the daemon event bus and maps
// events to notifications according to the configured categories; when no
// ntfy topic is configured the service degrades to a noop.
package notifications
