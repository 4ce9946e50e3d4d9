package suggest

import (
	"encoding/json"
	"testing"
)

// payloadBody wraps changeset HTML the way the changeset endpoint does.
func payloadBody(t *testing.T, html string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"error":   nil,
		"payload": map[string]any{"changeset": html},
	})
	if err != nil {
		t.Fatal(err)
	}
	return jsonGuard + string(b)
}

const suggestionTable = `<table class="differential-diff">
<tr><td class="left old">  foo() {  </td></tr>
<tr><td class="right new">+ bar() {</td></tr>
<tr><td class="left old">}</td></tr>
<tr><td class="right new">    break;</td></tr>
<tr><td class="right new">   </td></tr>
</table>`

func doneView(table string) string {
	return `<div class="differential-inline-comment inline-is-done"><div class="inline-suggestion-view">` +
		table + `</div></div>`
}

func openView(table string) string {
	return `<div class="differential-inline-comment"><div class="inline-suggestion-view">` +
		table + `</div></div>`
}

var req = Request{RevisionID: 42, LineNumber: 10, FilePath: "src/a.go"}

func TestParse_SuggestionTextJSON(t *testing.T) {
	want := "**Suggested changes:**\n\n```diff\n-old\n+new\n```"
	for _, body := range []string{
		`{"suggestionText":"-old\\n+new"}`,
		`for (;;);{"suggestionText":"-old\\n+new"}`,
		`{"suggestionText":"-old\n+new"}`,
	} {
		got, ok := Parse(body, req)
		if !ok {
			t.Fatalf("Parse(%q) found nothing", body)
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", body, got, want)
		}
	}
}

func TestParse_SuggestionTextSelection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "blank values skipped",
			body: `{"payload":{"x":[{"suggestionText":"  "},{"suggestionText":"-a\n+b"}]}}`,
			want: "-a\n+b",
		},
		{
			name: "document order",
			body: `{"z":{"suggestionText":"+first"},"a":{"suggestionText":"+second"}}`,
			want: "+first",
		},
		{
			name: "marker counts as change",
			body: `{"inner":{"suggestionText":"uuuu"}}`,
			want: "uuuu",
		},
		{
			name: "unchanged text falls back to literal",
			body: `{"suggestionText":"plain"}`,
			want: "plain",
		},
		{
			name: "invalid json uses literal with escapes",
			body: `<script>x = {"suggestionText":"a \u003e b\/c \"q\"\tend"</script>`,
			want: "a > b/c \"q\"\tend",
		},
		{
			name: "escaped backslash is not a newline",
			body: `broken {"suggestionText":"-x\\n"`,
			want: `-x\n`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.body, req)
			if !ok {
				t.Fatal("Parse found nothing")
			}
			if want := Format(tt.want); got != want {
				t.Errorf("Parse = %q, want %q", got, want)
			}
		})
	}
}

func TestParse_InlineTable(t *testing.T) {
	body := payloadBody(t, `<div>header</div>`+openView(suggestionTable))
	got, ok := Parse(body, req)
	if !ok {
		t.Fatal("Parse found nothing")
	}
	want := Format("- foo() {\n+ bar() {")
	if got != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParse_DoneSuppression(t *testing.T) {
	body := payloadBody(t, doneView(suggestionTable))

	if got, ok := Parse(body, req); ok {
		t.Errorf("done suggestion should be suppressed, got %q", got)
	}

	withDone := req
	withDone.IncludeDone = true
	got, ok := Parse(body, withDone)
	if !ok {
		t.Fatal("IncludeDone should recover the suggestion")
	}
	if want := Format("- foo() {\n+ bar() {"); got != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParse_InlineTableSkipsDoneView(t *testing.T) {
	stale := `<table><tr><td class="left old">stale()</td></tr><tr><td class="right new">resolved()</td></tr></table>`
	live := `<table><tr><td class="left old">live()</td></tr><tr><td class="right new">fresh()</td></tr></table>`
	body := payloadBody(t, doneView(stale)+openView(live))

	got, strategy, ok := parse(body, req)
	if !ok {
		t.Fatal("Parse found nothing")
	}
	if strategy != "inline-table" {
		t.Errorf("strategy = %q, want inline-table", strategy)
	}
	if want := Format("- live()\n+ fresh()"); got != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}

	withDone := req
	withDone.IncludeDone = true
	got, ok = Parse(body, withDone)
	if want := Format("- stale()\n+ resolved()"); !ok || got != want {
		t.Errorf("IncludeDone Parse = (%q, %v), want %q", got, ok, want)
	}
}

func TestParse_DoneSuppressionRawHTML(t *testing.T) {
	table := `<table><tr><td class="diff-old">- x</td></tr></table>`
	body := `<html><body>` + doneView(table) + `</body></html>`

	if got, ok := Parse(body, req); ok {
		t.Errorf("done suggestion should be suppressed, got %q", got)
	}
	withDone := req
	withDone.IncludeDone = true
	if got, ok := Parse(body, withDone); !ok || got != Format("- x") {
		t.Errorf("Parse = (%q, %v), want %q", got, ok, Format("- x"))
	}
}

func TestParse_RowDiff(t *testing.T) {
	body := payloadBody(t, `<table>
<tr><td class="old">a := 1</td><td class="new">a := 2</td></tr>
<tr><td class="old"></td><td class="new">b := 3</td></tr>
</table>`)
	got, ok := Parse(body, req)
	if !ok {
		t.Fatal("Parse found nothing")
	}
	if want := Format("- a := 1\n+ a := 2\n+ b := 3"); got != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParse_SuggestionViewSelectors(t *testing.T) {
	body := `<html><body>` +
		doneView(`<table><tr><td class="diff-old">- stale</td></tr></table>`) +
		openView(`<table>
<tr><td class="diff-old">- x</td><td class="diff-new">+</td></tr>
<tr><td class="diff-new">+ y</td></tr>
<tr><td class="old">z</td><td class="diff-old">ignored</td></tr>
</table>`) +
		`</body></html>`

	got, ok := Parse(body, req)
	if !ok {
		t.Fatal("Parse found nothing")
	}
	if want := Format("- x\n+ y\n- z"); got != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParse_NothingFound(t *testing.T) {
	for _, body := range []string{
		"",
		"<html><body>no suggestions</body></html>",
		`for (;;);{"payload":{"changeset":"<div>plain diff</div>"}}`,
		`{"payload":{"other":1}}`,
		`{"suggestionText":"   "}`,
	} {
		if got, ok := Parse(body, req); ok {
			t.Errorf("Parse(%q) = %q, want nothing", body, got)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	bodies := []string{
		payloadBody(t, openView(suggestionTable)),
		`{"suggestionText":"-old\\n+new"}`,
		`<div class="inline-suggestion-view"><table><tr><td class="new">q</td></tr></table></div>`,
	}
	for _, body := range bodies {
		first, ok1 := Parse(body, req)
		second, ok2 := Parse(body, req)
		if first != second || ok1 != ok2 {
			t.Errorf("Parse not idempotent for %q: (%q, %v) vs (%q, %v)", body, first, ok1, second, ok2)
		}
	}
}

func TestParse_StrategyOrder(t *testing.T) {
	// A payload carrying both a suggestion table and a suggestionText member
	// resolves through the table.
	b, err := json.Marshal(map[string]any{
		"payload": map[string]any{
			"changeset": openView(suggestionTable),
			"data":      map[string]any{"suggestionText": "+from json"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, strategy, ok := parse(string(b), req)
	if !ok || strategy != "inline-table" {
		t.Errorf("strategy = %q (ok %v), want inline-table", strategy, ok)
	}
}

func TestCleanInlineRow(t *testing.T) {
	tests := []struct {
		text   string
		prefix string
		want   string
		wantOK bool
	}{
		{"  foo() {  ", "- ", "foo() {", true},
		{"- - bar", "- ", "bar", true},
		{"+ baz", "+ ", "baz", true},
		{"}", "- ", "", false},
		{"  break;", "+ ", "", false},
		{"   ", "- ", "", false},
	}
	for _, tt := range tests {
		got, ok := cleanInlineRow(tt.text, tt.prefix)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("cleanInlineRow(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}
