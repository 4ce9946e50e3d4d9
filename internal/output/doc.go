// Package output renders extraction reports.
//
// Three formats are supported:
//   - markdown: the review discussion as a readable document (default)
//   - json: the full structured report
//   - yaml: the same structure as YAML
//
// Use [GetWriter] to obtain a [Writer] for a format string, then call
// [Writer.Write] with an [io.Writer] and a [*review.Report]. [WriteReport]
// handles choosing between a file and stdout.
package output
