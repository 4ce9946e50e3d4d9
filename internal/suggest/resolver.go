package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/session"
	"github.com/dshills/phabmd/internal/webui"
)

// Outcomes of a failed lookup. None of them is fatal to an extraction run.
var (
	ErrNotAddressable = errors.New("inline comment has no line or path")
	ErrNoChangeset    = errors.New("no changeset candidate scored above zero")
	ErrNoSuggestion   = errors.New("no parse strategy found a suggestion")
	ErrTimedOut       = errors.New("suggestion lookup timed out")
)

// CookieSource resolves session cookies for a domain.
type CookieSource interface {
	Resolve(ctx context.Context, domain string) (session.Cookies, error)
}

// ChangesetSource fetches changeset candidates from the web UI. It is
// satisfied by *webui.Client.
type ChangesetSource interface {
	DiscoverReferences(ctx context.Context, revisionID int, cookies session.Cookies) []string
	FetchBestChangeset(ctx context.Context, revisionID int, refs []string, cookies session.Cookies) (webui.Candidate, bool)
	FetchFallbackChangeset(ctx context.Context, revisionID int, cookies session.Cookies, diffs webui.DiffSource) (webui.Candidate, bool)
}

// Options configures a Resolver.
type Options struct {
	// Domain is the host session cookies are looked up for.
	Domain string
	// Timeout bounds one lookup; zero means no limit beyond the caller's.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Resolver runs the suggestion pipeline for one Phabricator instance.
type Resolver struct {
	cookies CookieSource
	web     ChangesetSource
	diffs   webui.DiffSource
	domain  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver. cookies and diffs may be nil, in which
// case requests go out unauthenticated and the fallback skips diff ids.
func NewResolver(web ChangesetSource, cookies CookieSource, diffs webui.DiffSource, opts Options) *Resolver {
	return &Resolver{
		cookies: cookies,
		web:     web,
		diffs:   diffs,
		domain:  opts.Domain,
		timeout: opts.Timeout,
		logger:  logging.OrDiscard(opts.Logger),
	}
}

// Resolve returns the formatted suggestion for an inline comment, or false
// when it cannot be recovered.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, bool) {
	text, err := r.Lookup(ctx, req)
	if err != nil {
		r.logger.Debug("suggestion unresolved",
			"revision", req.RevisionID, "path", req.FilePath, "line", req.LineNumber, "reason", err)
		return "", false
	}
	return text, true
}

// Lookup is Resolve with the reason for a miss. The error is one of the
// package outcomes, possibly wrapped.
func (r *Resolver) Lookup(ctx context.Context, req Request) (string, error) {
	if req.LineNumber <= 0 || req.FilePath == "" {
		return "", ErrNotAddressable
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	logger := r.logger.With("revision", req.RevisionID, "path", req.FilePath, "line", req.LineNumber)

	cookies := r.sessionCookies(ctx, logger)

	refs := r.web.DiscoverReferences(ctx, req.RevisionID, cookies)
	candidate, ok := r.web.FetchBestChangeset(ctx, req.RevisionID, refs, cookies)
	if !ok {
		logger.Debug("no scored changeset from page references, trying fallback", "refs", len(refs))
		candidate, ok = r.web.FetchFallbackChangeset(ctx, req.RevisionID, cookies, r.diffs)
	}
	if !ok {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrTimedOut, err)
		}
		return "", ErrNoChangeset
	}

	text, strategy, ok := parse(candidate.Body, req)
	if !ok {
		return "", ErrNoSuggestion
	}
	logger.Debug("suggestion resolved", "ref", candidate.Reference, "score", candidate.Score, "strategy", strategy)
	return text, nil
}

func (r *Resolver) sessionCookies(ctx context.Context, logger *slog.Logger) session.Cookies {
	if r.cookies == nil {
		return nil
	}
	cookies, err := r.cookies.Resolve(ctx, r.domain)
	if err != nil {
		logger.Debug("continuing without session cookies", "error", err)
		return nil
	}
	return cookies
}
