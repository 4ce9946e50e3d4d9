// Package session locates an authenticated Phabricator web session.
//
// The web UI renders inline code suggestions that the Conduit API never
// exposes, and reading them requires the browser's session cookies (phsid
// and phusr). A [Locator] resolves them for a domain either from an explicit
// override string or from the newest Firefox profile whose cookies.sqlite
// holds both, copying a locked store to a temporary directory first. Results
// are memoized per domain for the lifetime of the Locator.
package session
