// Package queue persists analysis jobs and their per-stage results in SQLite.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, and stale-job recovery. Jobs move through
// pending, running, and a terminal status; stage results record what each
// pipeline stage produced (or why it failed) so partial failures stay
// inspectable after the job finishes.
//
// The database is treated as transient storage for in-flight work rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
