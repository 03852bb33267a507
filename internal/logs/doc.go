// Package logs tails the daemon log file for `mirrorvault logs` and the
// LogTail RPC.
//
// A negative offset returns the last N lines; a non-negative offset reads
// forward from that byte position and, in follow mode, polls until new
// lines arrive or the wait elapses. An optional match restricts output to
// lines containing a substring, typically a pair id.
package logs
