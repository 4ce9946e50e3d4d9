// Package webui reaches the parts of a Phabricator revision that only exist
// in the authenticated web interface.
//
// It fetches the revision page to recover the anti-forgery token and the
// changeset references embedded in it, then replays the browser's AJAX
// changeset request for each reference and keeps the response most likely
// to carry a code suggestion. Nothing here returns an error to the caller
// for a failed fetch; failures are logged at debug level and the next
// candidate is tried.
package webui
