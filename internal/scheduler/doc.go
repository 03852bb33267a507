// Package scheduler runs enabled backup pairs through the mirroring tool.
//
// Runner executes one batch: it snapshots the shared settings, runs every
// enabled pair sequentially in stored order, reports each pair's start and
// outcome to a Reporter, and publishes a single summary notification. The
// interval loop (Scheduler) and one-shot manual or device-triggered runs
// both go through the same Runner.
//
// Scheduler sleeps between ticks in slices no longer than the configured
// slice (at most 60s) so Stop returns within one slice once the in-flight
// tool invocation, if any, has finished. Settings are re-read at every tick,
// so pair and interval edits take effect at the next tick boundary.
package scheduler
