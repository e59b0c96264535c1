// Package storage persists metrics records in SQLite so the accumulated
// summary survives restarts.
//
// The database runs in WAL mode with a busy timeout and a single open
// connection. The schema is embedded and applied on Open; it is idempotent.
package storage
