// Package cache provides the run-scoped memo tables used while extracting a
// revision.
//
// A [Memo] maps a stable key (a cookie domain, a user PHID) to a value that
// was expensive to obtain. Entries live in memory for the lifetime of the
// owning object and are never written to disk; a memo is created by the
// top-level extraction and handed to the components that need it, so tests
// can build isolated instances.
package cache
