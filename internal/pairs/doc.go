// Package pairs models the persisted mirroring configuration: the ordered
// list of source/destination pairs, the global check interval, and the
// options handed to the mirroring tool.
//
// Settings is a plain value type with index-based list operations. Handle
// wraps one Settings behind a mutex and couples every mutation with a save
// through the persistence collaborator, so a failed save leaves the
// in-memory copy untouched.
package pairs
