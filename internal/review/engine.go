package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/phabmd/internal/cache"
	"github.com/dshills/phabmd/internal/conduit"
	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/suggest"
)

const toolName = "phabmd"

// Version is the phabmd release recorded in every report.
const Version = "1.0.0"

// API is the slice of the Conduit client the extractor needs.
type API interface {
	RevisionPHID(ctx context.Context, revisionID int) (string, error)
	Transactions(ctx context.Context, objectPHID string) ([]conduit.Transaction, error)
	User(ctx context.Context, phid string) (conduit.User, error)
}

// SuggestionResolver recovers code suggestions for empty inline comments.
type SuggestionResolver interface {
	Resolve(ctx context.Context, req suggest.Request) (string, bool)
}

// Extractor builds Reports for revisions on one Phabricator instance.
type Extractor struct {
	api      API
	resolver SuggestionResolver
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewExtractor creates an Extractor. resolver may be nil, in which case
// empty inline comments always get the placeholder.
func NewExtractor(api API, resolver SuggestionResolver, baseURL string, logger *slog.Logger) *Extractor {
	return &Extractor{
		api:      api,
		resolver: resolver,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

// Run extracts every comment and review action on revision D{revisionID}.
// Done inline comments are left out unless includeDone is set.
func (e *Extractor) Run(ctx context.Context, revisionID int, includeDone bool) (*Report, error) {
	if revisionID <= 0 {
		return nil, fmt.Errorf("invalid revision id %d", revisionID)
	}
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "revision", revisionID)
	start := time.Now()

	phid, err := e.api.RevisionPHID(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	txs, err := e.api.Transactions(ctx, phid)
	if err != nil {
		return nil, err
	}
	logger.Info("fetched transactions", "count", len(txs))

	c := &classifier{
		api:         e.api,
		resolver:    e.resolver,
		users:       cache.New[string, string](),
		logger:      logger,
		revisionID:  revisionID,
		includeDone: includeDone,
	}
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.add(ctx, tx)
	}

	sort.SliceStable(c.general, func(i, j int) bool { return c.general[i].Created.Before(c.general[j].Created) })
	sort.SliceStable(c.actions, func(i, j int) bool { return c.actions[i].Created.Before(c.actions[j].Created) })
	SortInline(c.inline)

	summary := c.summary
	summary.GeneralComments = len(c.general)
	summary.InlineComments = len(c.inline)
	summary.ReviewActions = len(c.actions)

	logger.Info("extraction complete",
		"general", summary.GeneralComments,
		"inline", summary.InlineComments,
		"actions", summary.ReviewActions,
		"suggestions_resolved", summary.SuggestionsResolved,
		"suggestions_unresolved", summary.SuggestionsUnresolved,
		"elapsed", time.Since(start).Round(time.Millisecond))
	users := c.users.GetStats()
	logger.Debug("author lookups", "users", users.Entries, "hits", users.Hits, "misses", users.Misses)

	return &Report{
		Tool:        toolName,
		Version:     Version,
		RunID:       runID,
		BaseURL:     e.baseURL,
		RevisionID:  revisionID,
		GeneratedAt: e.now().UTC(),
		General:     c.general,
		Inline:      c.inline,
		Actions:     c.actions,
		Summary:     summary,
	}, nil
}

// SortInline orders inline comments by time, then path, then line.
func SortInline(comments []InlineComment) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
}
