package review

import (
	"fmt"
	"strconv"
	"time"
)

// Placeholder bodies.
const (
	EmptyCommentText     = "*[Empty comment]*"
	UnresolvedInlineText = "*[Empty inline comment - likely contains a code suggestion that cannot be extracted via API]*"
)

// ActionKind is a review-state transition.
type ActionKind string

const (
	ActionRequestChanges ActionKind = "request-changes"
	ActionAccept         ActionKind = "accept"
	ActionReject         ActionKind = "reject"
	ActionRequestReview  ActionKind = "request-review"
)

// IsAction reports whether a transaction type is a review action.
func IsAction(txType string) bool {
	switch ActionKind(txType) {
	case ActionRequestChanges, ActionAccept, ActionReject, ActionRequestReview:
		return true
	}
	return false
}

// Comment is a general (non-inline) comment.
type Comment struct {
	Author        string    `json:"author" yaml:"author"`
	AuthorPHID    string    `json:"authorPhid" yaml:"authorPhid"`
	Created       time.Time `json:"created" yaml:"created"`
	Content       string    `json:"content" yaml:"content"`
	TransactionID int64     `json:"transactionId" yaml:"transactionId"`
	CommentID     int64     `json:"commentId" yaml:"commentId"`
}

// InlineComment is a comment anchored to a file and line range.
type InlineComment struct {
	Author        string    `json:"author" yaml:"author"`
	AuthorPHID    string    `json:"authorPhid" yaml:"authorPhid"`
	Created       time.Time `json:"created" yaml:"created"`
	Content       string    `json:"content" yaml:"content"`
	Path          string    `json:"path" yaml:"path"`
	Line          int       `json:"line" yaml:"line"`
	Length        int       `json:"length" yaml:"length"`
	DiffID        string    `json:"diffId,omitempty" yaml:"diffId,omitempty"`
	IsDone        bool      `json:"isDone" yaml:"isDone"`
	Suggestion    bool      `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	TransactionID int64     `json:"transactionId" yaml:"transactionId"`
	CommentID     int64     `json:"commentId" yaml:"commentId"`
}

// LineLabel renders the anchor as "Line N" or "Line N-M".
func (c InlineComment) LineLabel() string {
	if c.Length > 1 {
		return fmt.Sprintf("Line %d-%d", c.Line, c.Line+c.Length-1)
	}
	return "Line " + strconv.Itoa(c.Line)
}

// ReviewAction is a review-state transition with its attached comments.
type ReviewAction struct {
	Author        string     `json:"author" yaml:"author"`
	AuthorPHID    string     `json:"authorPhid" yaml:"authorPhid"`
	Created       time.Time  `json:"created" yaml:"created"`
	Action        ActionKind `json:"action" yaml:"action"`
	Comments      []string   `json:"comments,omitempty" yaml:"comments,omitempty"`
	TransactionID int64      `json:"transactionId" yaml:"transactionId"`
}

// Summary counts what the extraction found.
type Summary struct {
	GeneralComments       int `json:"generalComments" yaml:"generalComments"`
	InlineComments        int `json:"inlineComments" yaml:"inlineComments"`
	ReviewActions         int `json:"reviewActions" yaml:"reviewActions"`
	SuggestionsResolved   int `json:"suggestionsResolved" yaml:"suggestionsResolved"`
	SuggestionsUnresolved int `json:"suggestionsUnresolved" yaml:"suggestionsUnresolved"`
	DoneSkipped           int `json:"doneSkipped" yaml:"doneSkipped"`
}

// Report is the top-level output structure.
type Report struct {
	Tool        string          `json:"tool" yaml:"tool"`
	Version     string          `json:"version" yaml:"version"`
	RunID       string          `json:"runId" yaml:"runId"`
	BaseURL     string          `json:"baseUrl" yaml:"baseUrl"`
	RevisionID  int             `json:"revisionId" yaml:"revisionId"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generatedAt"`
	General     []Comment       `json:"general" yaml:"general"`
	Inline      []InlineComment `json:"inline" yaml:"inline"`
	Actions     []ReviewAction  `json:"actions" yaml:"actions"`
	Summary     Summary         `json:"summary" yaml:"summary"`
}

// RevisionURL is the web address of the revision.
func (r *Report) RevisionURL() string {
	return fmt.Sprintf("%s/D%d", r.BaseURL, r.RevisionID)
}
