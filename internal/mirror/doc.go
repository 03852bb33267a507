// Package mirror runs the external mirroring tool for one source and
// destination pair and turns its exit status and report into an Outcome.
//
// Classification follows the tool's exit-code contract: 0 and 1 succeed,
// 2 through 7 are warnings (extra or mismatched items), anything else
// failed. Report parsing only recovers telemetry (files and bytes copied);
// a report that cannot be parsed yields zeros, never a failure.
//
// Expected problems (missing source, destination that cannot be created,
// tool not found) are reported as Failed outcomes instead of errors.
package mirror
