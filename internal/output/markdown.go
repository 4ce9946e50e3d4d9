package output

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dshills/phabmd/internal/review"
)

const dateLayout = "2006-01-02 15:04:05"

const noCommentText = "*[No comment text]*"

// MarkdownWriter renders the review discussion as a Markdown document.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	var lines []string
	add := func(s ...string) { lines = append(lines, s...) }

	add(fmt.Sprintf("# Phabricator Review Comments - %s", report.RevisionURL()), "")

	if len(report.General) > 0 {
		add("## General Comments", "")
		for _, c := range report.General {
			add(fmt.Sprintf("### Comment by %s (%s)", c.Author, c.Created.UTC().Format(dateLayout)), "")
			add(c.Content, "", "---", "")
		}
	}

	if len(report.Actions) > 0 {
		add("## Review Actions", "")
		for _, a := range report.Actions {
			add(fmt.Sprintf("### %s by %s (%s)", actionTitle(a.Action), a.Author, a.Created.UTC().Format(dateLayout)), "")
			for _, body := range a.Comments {
				add(body, "")
			}
			add("---", "")
		}
	}

	if len(report.Inline) > 0 {
		add("## Inline Comments", "")
		for _, file := range groupByFile(report.Inline) {
			add(fmt.Sprintf("### File: `%s`", file.path), "")
			for _, c := range file.comments {
				done := ""
				if c.IsDone {
					done = " [DONE]"
				}
				add(fmt.Sprintf("#### %s - %s (%s)%s", c.LineLabel(), c.Author, c.Created.UTC().Format(dateLayout), done), "")
				content := c.Content
				if content == "" {
					content = noCommentText
				}
				add(content, "", "---", "")
			}
		}
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// actionTitle turns "request-changes" into "Request Changes".
func actionTitle(a review.ActionKind) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(a), "-", " "))
}

type fileComments struct {
	path     string
	comments []review.InlineComment
}

// groupByFile orders files by their earliest comment and keeps comments in
// time order within each file.
func groupByFile(inline []review.InlineComment) []fileComments {
	sorted := make([]review.InlineComment, len(inline))
	copy(sorted, inline)
	review.SortInline(sorted)

	var files []fileComments
	index := make(map[string]int)
	for _, c := range sorted {
		i, ok := index[c.Path]
		if !ok {
			i = len(files)
			index[c.Path] = i
			files = append(files, fileComments{path: c.Path})
		}
		files[i].comments = append(files[i].comments, c)
	}
	return files
}
