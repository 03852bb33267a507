// Package daemon coordinates the long-running mirrorvault process.
//
// It wires configuration, the SQLite store, the control plane, the device
// watcher, and the optional HTTP API into a single lifecycle with
// flock-based locking so only one instance owns the state directory. The
// scheduler itself is started and stopped through control-plane commands;
// the daemon owns the process around it.
//
// Keep orchestration here: pair validation, execution, and status
// bookkeeping live in their own packages.
package daemon
