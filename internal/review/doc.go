// Package review turns the transaction log of a Differential revision into
// a Report of general comments, inline comments and review actions.
//
// Extractor fetches the revision's transactions through Conduit and hands
// each one to the classifier, which resolves author display names through a
// run-scoped memo and, for inline comments whose body is empty, asks the
// suggestion resolver for the code suggestion the web UI renders in its
// place. A suggestion that cannot be recovered becomes a placeholder; it
// never fails the run.
package review
