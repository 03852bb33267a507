// Package pathcheck validates candidate source/destination pairs before
// they are committed to the pair list.
//
// Validate never returns an error value. Problems are reported as Result
// levels on the source, the destination, and a cross-check against the
// existing pairs. Only Error results block an add or update; Warning
// results are advisories that the caller surfaces and then accepts.
//
// The only side effects are read probes (a directory listing) and a write
// probe that creates and removes one temporary file.
package pathcheck
