// Package notifications delivers orchestrator events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Event groups
// (run summaries, daemon state changes, advisories) can be muted
// individually from the [notifications] section.
//
// Callers depend only on the Service interface.
package notifications
