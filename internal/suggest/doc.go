// Package suggest recovers the text of inline code-suggestion comments.
//
// Conduit reports a suggestion comment with an empty body; the proposed
// change only exists in the changeset the web UI renders. Resolver drives
// the network side (session cookies, changeset references, scored
// changeset fetches) and Parse turns the winning response into a fenced
// diff block. Parse runs an ordered list of strategies over the response,
// since the same suggestion may arrive as escaped JSON, as an HTML table
// inside a JSON payload, or as bare HTML.
//
// Every failure inside the pipeline is an outcome, not an error for the
// caller: Resolve reports false and the comment is rendered with a
// placeholder.
package suggest
