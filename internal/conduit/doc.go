// Package conduit is a small client for the Phabricator Conduit API.
//
// Every call is a form-encoded POST to {base}/api/{method} carrying the
// api.token parameter. Responses are read with gjson so callers can pull
// loosely typed transaction fields (ids that arrive as numbers or strings,
// optional objects) without a struct per payload shape.
//
// Transient failures (HTTP 429 and 503) are retried with exponential
// backoff. Conduit-level failures surface as *APIError and transport-level
// ones as *HTTPError; IsAuthError reports whether the token was rejected.
package conduit
