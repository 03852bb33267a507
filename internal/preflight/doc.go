// Package preflight provides readiness checks for the filesystem paths and
// external tool mirrorvault depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll at startup so a missing state directory or an
//     unresolvable mirroring tool shows up before the first tick.
//   - The CLI "mirrorvault status" command renders the same results, plus
//     destination free space for every enabled pair.
//
// The batch runner also calls CheckDiskSpace before each pair and publishes
// an advisory when a destination volume is nearly full. Advisories never
// change a pair's outcome.
package preflight
