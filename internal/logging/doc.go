// Package logging assembles structured slog loggers used by the mirrorvault
// daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standardized field keys (component, event_type, pair_id, ...), and helpers
// that enforce cause/impact/hint fields on warnings. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
