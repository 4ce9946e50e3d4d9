package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/phabmd/internal/review"
)

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func sampleReport() *review.Report {
	return &review.Report{
		Tool:        "phabmd",
		Version:     "1.0",
		RunID:       "run-1",
		BaseURL:     "https://phab.example.com",
		RevisionID:  42,
		GeneratedAt: at(1700000000),
		General: []review.Comment{
			{Author: "Alice A (alice)", Created: at(1700000000), Content: "Looks good overall."},
		},
		Actions: []review.ReviewAction{
			{Author: "bob", Created: at(1700000100), Action: review.ActionRequestChanges, Comments: []string{"Please fix the nit."}},
		},
		Inline: []review.InlineComment{
			{Author: "bob", Created: at(1700000300), Path: "a.go", Line: 3, Length: 1, Content: "later in a.go"},
			{Author: "bob", Created: at(1700000200), Path: "b.go", Line: 10, Length: 2, Content: "first overall", IsDone: true},
			{Author: "alice", Created: at(1700000250), Path: "a.go", Line: 1, Length: 1, Content: "earliest in a.go"},
		},
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	want := strings.Join([]string{
		"# Phabricator Review Comments - https://phab.example.com/D42",
		"",
		"## General Comments",
		"",
		"### Comment by Alice A (alice) (2023-11-14 22:13:20)",
		"",
		"Looks good overall.",
		"",
		"---",
		"",
		"## Review Actions",
		"",
		"### Request Changes by bob (2023-11-14 22:15:00)",
		"",
		"Please fix the nit.",
		"",
		"---",
		"",
		"## Inline Comments",
		"",
		"### File: `b.go`",
		"",
		"#### Line 10-11 - bob (2023-11-14 22:16:40) [DONE]",
		"",
		"first overall",
		"",
		"---",
		"",
		"### File: `a.go`",
		"",
		"#### Line 1 - alice (2023-11-14 22:17:30)",
		"",
		"earliest in a.go",
		"",
		"---",
		"",
		"#### Line 3 - bob (2023-11-14 22:18:20)",
		"",
		"later in a.go",
		"",
		"---",
		"",
	}, "\n") + "\n"

	if got := buf.String(); got != want {
		t.Errorf("markdown mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestMarkdownWriter_Empty(t *testing.T) {
	report := &review.Report{BaseURL: "https://phab.example.com", RevisionID: 1}
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if out != "# Phabricator Review Comments - https://phab.example.com/D1\n\n" {
		t.Errorf("empty report = %q", out)
	}
}

func TestMarkdownWriter_EmptyInlineContent(t *testing.T) {
	report := &review.Report{
		BaseURL:    "https://phab.example.com",
		RevisionID: 1,
		Inline:     []review.InlineComment{{Author: "x", Created: at(0), Path: "p", Line: 1}},
	}
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, report); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "*[No comment text]*") {
		t.Errorf("expected no-text placeholder:\n%s", buf.String())
	}
}

func TestActionTitle(t *testing.T) {
	tests := map[review.ActionKind]string{
		review.ActionRequestChanges: "Request Changes",
		review.ActionAccept:         "Accept",
		review.ActionReject:         "Reject",
		review.ActionRequestReview:  "Request Review",
	}
	for in, want := range tests {
		if got := actionTitle(in); got != want {
			t.Errorf("actionTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["revisionId"] != float64(42) || decoded["baseUrl"] != "https://phab.example.com" {
		t.Errorf("decoded header = %v", decoded)
	}
	inline, ok := decoded["inline"].([]any)
	if !ok || len(inline) != 3 {
		t.Fatalf("inline = %v", decoded["inline"])
	}
	first := inline[1].(map[string]any)
	if first["isDone"] != true || first["path"] != "b.go" {
		t.Errorf("inline[1] = %v", first)
	}
}

func TestJSONWriter_KeepsDiffMarkup(t *testing.T) {
	report := &review.Report{
		RevisionID: 1,
		Inline:     []review.InlineComment{{Path: "a.go", Line: 1, Content: "- if a < b && c > d {"}},
	}
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, report); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"- if a < b && c > d {"`) {
		t.Errorf("diff markup was escaped:\n%s", buf.String())
	}
}

func TestYAMLWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var decoded struct {
		RevisionID int `yaml:"revisionId"`
		Actions    []struct {
			Action   string   `yaml:"action"`
			Comments []string `yaml:"comments"`
		} `yaml:"actions"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if decoded.RevisionID != 42 {
		t.Errorf("revisionId = %d", decoded.RevisionID)
	}
	if len(decoded.Actions) != 1 || decoded.Actions[0].Action != "request-changes" || decoded.Actions[0].Comments[0] != "Please fix the nit." {
		t.Errorf("actions = %+v", decoded.Actions)
	}
}

func TestGetWriter(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"", "*output.MarkdownWriter", false},
		{"markdown", "*output.MarkdownWriter", false},
		{"MD", "*output.MarkdownWriter", false},
		{"json", "*output.JSONWriter", false},
		{"yaml", "*output.YAMLWriter", false},
		{"yml", "*output.YAMLWriter", false},
		{"sarif", "", true},
	}
	for _, tt := range tests {
		w, err := GetWriter(tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("GetWriter(%q) expected error", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("GetWriter(%q) error: %v", tt.format, err)
			continue
		}
		if got := typeName(w); got != tt.want {
			t.Errorf("GetWriter(%q) = %s, want %s", tt.format, got, tt.want)
		}
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *MarkdownWriter:
		return "*output.MarkdownWriter"
	case *JSONWriter:
		return "*output.JSONWriter"
	case *YAMLWriter:
		return "*output.YAMLWriter"
	}
	return "unknown"
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	var stdout bytes.Buffer
	if err := writeReport(&stdout, sampleReport(), "markdown", path); err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be untouched, got %q", stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Phabricator Review Comments - https://phab.example.com/D42\n") {
		t.Errorf("file content = %q", data)
	}

	stdout.Reset()
	if err := writeReport(&stdout, sampleReport(), "json", ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), `"runId": "run-1"`) {
		t.Errorf("stdout = %q", stdout.String())
	}

	if err := writeReport(&stdout, sampleReport(), "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
