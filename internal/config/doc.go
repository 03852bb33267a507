// Package config loads, normalizes, and validates mirrorvault process
// configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MIRRORVAULT_NTFY_TOPIC. Pair definitions and tool options are not stored
// here; the [defaults] section only seeds them when the state database is
// first created.
package config
