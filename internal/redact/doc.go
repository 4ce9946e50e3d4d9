// Package redact masks Phabricator credentials before they reach log output.
//
// Conduit API tokens (api-/cli- prefixed), session cookie assignments
// (phsid, phusr), and anti-forgery token assignments are replaced with
// [REDACTED]. [Cookies] renders a cookie set for logging with names intact
// and values masked.
package redact
