// Package store persists mirrorvault state in SQLite.
//
// It owns two things: the pair settings (pair list, check interval, tool
// options), which it loads and saves on behalf of pairs.Handle, and the
// append-only run history written after every finished pair execution.
// The in-memory status tracker stays authoritative for live counters; the
// runs table exists for `mirrorvault history` and post-mortems.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package store
