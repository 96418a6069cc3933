// Package events carries job and dependency lifecycle notifications from the
// orchestrator to interested consumers (notifications, API streaming, tests).
//
// Publishing never blocks: each subscriber owns a buffered channel, and events
// that would block are dropped and counted against that subscriber. Consumers
// that need a complete record should read the queue store instead.
package events
