// Phabmd exports the review discussion of a Phabricator Differential
// revision as Markdown.
//
// It reads general comments, review actions and inline comments through the
// Conduit API, and recovers inline code suggestions, which the API does not
// expose, from the web UI using the session cookies of a local Firefox
// profile.
//
// Usage:
//
//	phabmd extract --url https://phabricator.example.com/D123
//	phabmd extract --diff-id D123 --output D123.md
//	phabmd extract --diff-id 123 --format json --include-done
//	phabmd auth check                 # show which session cookies are found
//	phabmd config show                # print the effective configuration
package main
