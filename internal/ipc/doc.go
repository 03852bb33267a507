// Package ipc exposes the daemon over JSON-RPC on a Unix domain socket and
// ships the matching client used by the CLI.
//
// Every mutating RPC becomes a control-plane command, so the CLI and any
// other client observe the same ordering as in-process callers. Path
// validation failures come back as response fields rather than RPC errors
// so clients can render each message.
package ipc
