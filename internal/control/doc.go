// Package control is the orchestration control plane.
//
// A Plane owns the authoritative in-memory state (daemon on/off, window
// visibility intent, per-pair status) and is the only component that
// mutates it. Callers enqueue commands; a single consumer goroutine applies
// them one at a time in arrival order. The queue is unbounded, so Send
// never blocks the caller.
//
// Both scheduled ticks and manual runs report pair transitions back through
// the same queue as UpdateBackupStatus commands, which keeps status updates
// serialized with pair edits. A panic inside a command handler is recovered,
// logged, and the command abandoned; the loop keeps consuming.
package control
