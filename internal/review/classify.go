package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshills/phabmd/internal/cache"
	"github.com/dshills/phabmd/internal/conduit"
	"github.com/dshills/phabmd/internal/suggest"
)

// unknownAuthor names transactions that carry no author PHID.
const unknownAuthor = "unknown"

// classifier sorts transactions into report sections for one run.
type classifier struct {
	api         API
	resolver    SuggestionResolver
	users       *cache.Memo[string, string]
	logger      *slog.Logger
	revisionID  int
	includeDone bool

	general []Comment
	inline  []InlineComment
	actions []ReviewAction
	summary Summary
}

func (c *classifier) add(ctx context.Context, tx conduit.Transaction) {
	switch {
	case tx.Type == "comment":
		c.addGeneral(ctx, tx)
	case tx.Type == "inline":
		c.addInline(ctx, tx)
	case IsAction(tx.Type):
		c.addAction(ctx, tx)
	}
}

func (c *classifier) addGeneral(ctx context.Context, tx conduit.Transaction) {
	author := c.displayName(ctx, tx.AuthorPHID)
	for _, cm := range tx.Comments {
		content := cm.Raw
		if content == "" {
			content = EmptyCommentText
		}
		c.general = append(c.general, Comment{
			Author:        author,
			AuthorPHID:    tx.AuthorPHID,
			Created:       created(tx),
			Content:       content,
			TransactionID: tx.ID,
			CommentID:     cm.ID,
		})
	}
}

func (c *classifier) addInline(ctx context.Context, tx conduit.Transaction) {
	f := tx.Fields
	if f.IsDone && !c.includeDone {
		c.summary.DoneSkipped += len(tx.Comments)
		return
	}
	author := c.displayName(ctx, tx.AuthorPHID)
	for _, cm := range tx.Comments {
		ic := InlineComment{
			Author:        author,
			AuthorPHID:    tx.AuthorPHID,
			Created:       created(tx),
			Content:       cm.Raw,
			Path:          f.Path,
			Line:          f.Line,
			Length:        f.Length,
			DiffID:        f.DiffID,
			IsDone:        f.IsDone,
			TransactionID: tx.ID,
			CommentID:     cm.ID,
		}
		if ic.Content == "" {
			ic.Content, ic.Suggestion = c.suggestion(ctx, ic)
		}
		c.inline = append(c.inline, ic)
	}
}

func (c *classifier) suggestion(ctx context.Context, ic InlineComment) (string, bool) {
	if c.resolver != nil {
		text, ok := c.resolver.Resolve(ctx, suggest.Request{
			RevisionID:  c.revisionID,
			LineNumber:  ic.Line,
			FilePath:    ic.Path,
			IncludeDone: c.includeDone,
		})
		if ok {
			c.summary.SuggestionsResolved++
			return text, true
		}
	}
	c.summary.SuggestionsUnresolved++
	return UnresolvedInlineText, false
}

func (c *classifier) addAction(ctx context.Context, tx conduit.Transaction) {
	action := ReviewAction{
		Author:        c.displayName(ctx, tx.AuthorPHID),
		AuthorPHID:    tx.AuthorPHID,
		Created:       created(tx),
		Action:        ActionKind(tx.Type),
		TransactionID: tx.ID,
	}
	for _, cm := range tx.Comments {
		if cm.Raw != "" {
			action.Comments = append(action.Comments, cm.Raw)
		}
	}
	c.actions = append(c.actions, action)
}

// displayName resolves a user PHID once per run. Failed lookups fall back
// to the PHID and are remembered too.
func (c *classifier) displayName(ctx context.Context, phid string) string {
	if phid == "" {
		return unknownAuthor
	}
	return c.users.GetOrLoad(phid, func() string {
		u, err := c.api.User(ctx, phid)
		if err != nil {
			c.logger.Warn("user lookup failed", "phid", phid, "error", err)
			return phid
		}
		return u.DisplayName()
	})
}

func created(tx conduit.Transaction) time.Time {
	return time.Unix(tx.DateCreated, 0).UTC()
}
