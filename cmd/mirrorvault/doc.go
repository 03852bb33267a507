// Package main hosts the mirrorvault CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the running daemon: scheduling control, pair management, settings,
// run history and log tailing. The hidden `daemon` command runs the daemon
// process itself; `start` launches it detached when no daemon is listening.
//
// Business rules live in the internal packages. Commands here only parse
// flags, call the daemon, and render the reply.
package main
