package suggest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// Request identifies the inline comment a suggestion is resolved for.
type Request struct {
	RevisionID  int
	LineNumber  int
	FilePath    string
	IncludeDone bool
}

const (
	jsonGuard      = "for (;;);"
	suggestionView = "inline-suggestion-view"
	doneClass      = "inline-is-done"
	changeMarker   = "uuuu"
)

// Format wraps diff lines in the block every resolved suggestion is
// rendered as.
func Format(lines string) string {
	return fmt.Sprintf("**Suggested changes:**\n\n```diff\n%s\n```", lines)
}

// response is a changeset body decoded once and shared by every strategy.
type response struct {
	raw       string
	validJSON bool
	doc       gjson.Result
	// payload is the changeset HTML carried in payload.changeset, if any.
	payload    string
	hasPayload bool
}

func newResponse(body string) *response {
	r := &response{raw: body}
	stripped := strings.TrimPrefix(body, jsonGuard)
	if gjson.Valid(stripped) {
		r.validJSON = true
		r.doc = gjson.Parse(stripped)
		if p := r.doc.Get("payload.changeset"); p.Type == gjson.String {
			r.payload = p.String()
			r.hasPayload = true
		}
	}
	return r
}

type strategy struct {
	name string
	run  func(r *response, req Request) (string, bool)
}

// strategies run in order; the first one producing lines wins.
var strategies = []strategy{
	{name: "inline-table", run: parseInlineTable},
	{name: "suggestion-text", run: parseSuggestionText},
	{name: "row-diff", run: parseRowDiff},
	{name: "suggestion-view", run: parseSuggestionView},
}

// Parse extracts a suggestion from a changeset response and returns it
// formatted as a fenced diff. It reports false when no strategy finds one.
func Parse(body string, req Request) (string, bool) {
	text, _, ok := parse(body, req)
	return text, ok
}

func parse(body string, req Request) (string, string, bool) {
	r := newResponse(body)
	for _, s := range strategies {
		if lines, ok := s.run(r, req); ok {
			return Format(lines), s.name, true
		}
	}
	return "", "", false
}

// parseInlineTable reads the first table of the first eligible suggestion
// view in the payload HTML, classifying rows by their cell classes. Views
// inside a resolved comment are eligible only with IncludeDone.
func parseInlineTable(r *response, req Request) (string, bool) {
	if !strings.Contains(r.raw, suggestionView) || !r.hasPayload {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.payload))
	if err != nil {
		return "", false
	}
	table, ok := suggestionTableOf(doc, req)
	if !ok {
		return "", false
	}

	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		markup, err := goquery.OuterHtml(row)
		if err != nil {
			return
		}
		text := row.Text()
		if strings.Contains(markup, "left old") {
			if cleaned, ok := cleanInlineRow(text, "- "); ok {
				lines = append(lines, "- "+cleaned)
			}
		}
		if strings.Contains(markup, "right new") {
			if cleaned, ok := cleanInlineRow(text, "+ "); ok {
				lines = append(lines, "+ "+cleaned)
			}
		}
	})
	return joinLines(lines)
}

// suggestionTableOf returns the table belonging to the first view that may
// be reported: the one nested in it, else the next table after it.
func suggestionTableOf(doc *goquery.Document, req Request) (*goquery.Selection, bool) {
	var table *goquery.Selection
	doc.Find("." + suggestionView).EachWithBreak(func(_ int, view *goquery.Selection) bool {
		if !req.IncludeDone && insideDone(view) {
			return true
		}
		table = view.Find("table").First()
		if table.Length() == 0 {
			table = view.NextAllFiltered("table").First()
		}
		return false
	})
	return table, table != nil && table.Length() > 0
}

// cleanInlineRow trims a row and its diff prefix. Rows holding only
// closing syntax are dropped.
func cleanInlineRow(text, prefix string) (string, bool) {
	cleaned := strings.TrimSpace(trimRepeatedPrefix(strings.TrimSpace(text), prefix))
	if cleaned == "" || strings.Contains(cleaned, "break;") || strings.Contains(cleaned, "}") {
		return "", false
	}
	return cleaned, true
}

var suggestionTextRe = regexp.MustCompile(`"suggestionText":"((?:[^"\\]|\\.)*)"`)

var textEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\t`, "\t",
	`\u003e`, ">",
	`\u003c`, "<",
	`\/`, "/",
	`\"`, `"`,
	`\\`, `\`,
)

// parseSuggestionText looks for a suggestionText member holding an actual
// change, walking the JSON depth-first in document order. When the body is
// not JSON, or the walk finds nothing, the first suggestionText literal in
// the raw body is used instead. Either way escapes left in the text after
// decoding are resolved, since the value is often double encoded.
func parseSuggestionText(r *response, _ Request) (string, bool) {
	if r.validJSON {
		if text, ok := findSuggestionText(r.doc); ok {
			return strings.TrimSpace(textEscapes.Replace(text)), true
		}
	}

	m := suggestionTextRe.FindStringSubmatch(r.raw)
	if m == nil {
		return "", false
	}
	text := strings.TrimSpace(textEscapes.Replace(m[1]))
	if text == "" {
		return "", false
	}
	return text, true
}

func findSuggestionText(v gjson.Result) (string, bool) {
	var found string
	var ok bool
	switch {
	case v.IsObject():
		if st := v.Get("suggestionText"); st.Type == gjson.String && holdsChange(st.String()) {
			return st.String(), true
		}
		v.ForEach(func(_, child gjson.Result) bool {
			found, ok = findSuggestionText(child)
			return !ok
		})
	case v.IsArray():
		v.ForEach(func(_, child gjson.Result) bool {
			found, ok = findSuggestionText(child)
			return !ok
		})
	}
	return found, ok
}

func holdsChange(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return strings.Contains(text, changeMarker) || strings.Contains(text, "-") || strings.Contains(text, "+")
}

// parseRowDiff renders every old and new cell of the payload HTML as a
// removed or added line. Rows inside resolved comments are skipped unless
// the request asks for them.
func parseRowDiff(r *response, req Request) (string, bool) {
	if !r.hasPayload {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.payload))
	if err != nil {
		return "", false
	}
	var lines []string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if !req.IncludeDone && insideDone(row) {
			return
		}
		if text := strings.TrimSpace(row.Find("td.old").First().Text()); text != "" {
			lines = append(lines, "- "+text)
		}
		if text := strings.TrimSpace(row.Find("td.new").First().Text()); text != "" {
			lines = append(lines, "+ "+text)
		}
	})
	return joinLines(lines)
}

var (
	oldCellSelectors = []string{"td.left.old", "td.old", ".diff-old"}
	newCellSelectors = []string{"td.right.new", "td.new", ".diff-new"}
)

// parseSuggestionView reads the table inside each suggestion view element,
// skipping views inside resolved comments unless the request asks for them.
func parseSuggestionView(r *response, req Request) (string, bool) {
	var markup string
	switch {
	case r.hasPayload:
		markup = r.payload
	case !r.validJSON:
		markup = r.raw
	default:
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	var result string
	var found bool
	doc.Find("." + suggestionView).EachWithBreak(func(_ int, view *goquery.Selection) bool {
		if !req.IncludeDone && insideDone(view) {
			return true
		}
		table := view.Find("table").First()
		if table.Length() == 0 {
			return true
		}
		var lines []string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if text, ok := firstCellText(row, oldCellSelectors, "-"); ok {
				lines = append(lines, "- "+text)
			}
			if text, ok := firstCellText(row, newCellSelectors, "+"); ok {
				lines = append(lines, "+ "+text)
			}
		})
		result, found = joinLines(lines)
		return !found
	})
	return result, found
}

// firstCellText returns the cleaned text of the first cell matched by the
// first selector that matches anything in row.
func firstCellText(row *goquery.Selection, selectors []string, sign string) (string, bool) {
	for _, sel := range selectors {
		cell := row.Find(sel).First()
		if cell.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(cell.Text())
		if text == "" || text == sign {
			return "", false
		}
		cleaned := strings.TrimSpace(trimRepeatedPrefix(text, sign+" "))
		return cleaned, cleaned != ""
	}
	return "", false
}

// insideDone reports whether any ancestor of the selection's first node
// carries the resolved-comment class.
func insideDone(s *goquery.Selection) bool {
	if s.Length() == 0 {
		return false
	}
	for n := s.Get(0).Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hasClass(n, doneClass) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func trimRepeatedPrefix(s, prefix string) string {
	for strings.HasPrefix(s, prefix) {
		s = s[len(prefix):]
	}
	return s
}

func joinLines(lines []string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}
