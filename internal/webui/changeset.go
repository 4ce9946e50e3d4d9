package webui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dshills/phabmd/internal/session"
)

// Markers looked for when scoring a changeset response.
const (
	MarkerSuggestionText = "suggestionText"
	MarkerInlineView     = "inline-suggestion-view"
	MarkerInlineComment  = "differential-inline-comment"
)

// Scoring weighs the markers found in a changeset response. Only the
// relative order matters: a suggestion text outweighs any number of the
// weaker markers.
type Scoring struct {
	SuggestionText int
	InlineView     int
	InlineComment  int
}

// DefaultScoring returns the standard 100/10/1 weights.
func DefaultScoring() Scoring {
	return Scoring{SuggestionText: 100, InlineView: 10, InlineComment: 1}
}

// DefaultProbeOffsets are the revision-id offsets tried as a last resort.
func DefaultProbeOffsets() []int {
	return []int{0, 1, 2, -1, -2}
}

// Score sums the weights of the markers present in body.
func (s Scoring) Score(body string) int {
	score := 0
	if strings.Contains(body, MarkerSuggestionText) {
		score += s.SuggestionText
	}
	if strings.Contains(body, MarkerInlineView) {
		score += s.InlineView
	}
	if strings.Contains(body, MarkerInlineComment) {
		score += s.InlineComment
	}
	return score
}

// Candidate is one fetched changeset response.
type Candidate struct {
	Reference string
	Body      string
	Score     int
}

// deviceProfile selects the diff layout the changeset endpoint renders.
type deviceProfile struct {
	device    string
	metablock string
}

var (
	profileUnified    = deviceProfile{device: "1up", metablock: "7"}
	profileSideBySide = deviceProfile{device: "2up", metablock: "2"}
)

// DiffSource lists the diff ids known for a revision. The Conduit client
// satisfies it.
type DiffSource interface {
	DiffIDs(ctx context.Context, revisionID int) ([]string, error)
}

// FetchBestChangeset requests the changeset for every reference and returns
// the highest scoring response. Ties keep the earlier reference and a
// response scoring zero is never returned.
func (c *Client) FetchBestChangeset(ctx context.Context, revisionID int, refs []string, cookies session.Cookies) (Candidate, bool) {
	if len(refs) == 0 {
		return Candidate{}, false
	}
	token := c.tokenOrPlaceholder(ctx, revisionID, cookies)
	return c.bestOf(ctx, revisionID, refs, token, cookies, profileUnified)
}

// FetchFallbackChangeset is used when reference discovery finds nothing
// usable. It tries the diff ids reported by diffs and then probes the ids
// adjacent to the revision id, using the side-by-side layout and the same
// scoring rule. diffs may be nil.
func (c *Client) FetchFallbackChangeset(ctx context.Context, revisionID int, cookies session.Cookies, diffs DiffSource) (Candidate, bool) {
	token := c.tokenOrPlaceholder(ctx, revisionID, cookies)

	if diffs != nil {
		ids, err := diffs.DiffIDs(ctx, revisionID)
		if err != nil {
			c.logger.Debug("diff id lookup failed", "revision", revisionID, "error", err)
		}
		if best, ok := c.bestOf(ctx, revisionID, ids, token, cookies, profileSideBySide); ok {
			return best, true
		}
	}

	return c.bestOf(ctx, revisionID, ProbeReferences(revisionID, c.probeOffsets), token, cookies, profileSideBySide)
}

// ProbeReferences turns offsets into candidate references around revisionID,
// skipping non-positive ids and duplicates.
func ProbeReferences(revisionID int, offsets []int) []string {
	var refs []string
	seen := make(map[int]bool)
	for _, off := range offsets {
		id := revisionID + off
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, strconv.Itoa(id))
	}
	return refs
}

func (c *Client) tokenOrPlaceholder(ctx context.Context, revisionID int, cookies session.Cookies) string {
	if token, ok := c.FetchToken(ctx, revisionID, cookies); ok {
		return token
	}
	return PlaceholderToken
}

func (c *Client) bestOf(ctx context.Context, revisionID int, refs []string, token string, cookies session.Cookies, profile deviceProfile) (Candidate, bool) {
	var best Candidate
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		body, err := c.fetchChangeset(ctx, revisionID, ref, token, cookies, profile)
		if err != nil {
			c.logger.Debug("changeset fetch failed", "revision", revisionID, "ref", ref, "error", err)
			continue
		}
		score := c.scoring.Score(body)
		c.logger.Debug("changeset candidate", "revision", revisionID, "ref", ref, "device", profile.device, "score", score)
		if score > best.Score {
			best = Candidate{Reference: ref, Body: body, Score: score}
		}
	}
	return best, best.Score > 0
}

func (c *Client) fetchChangeset(ctx context.Context, revisionID int, ref, token string, cookies session.Cookies, profile deviceProfile) (string, error) {
	form := url.Values{
		"ref":           {ref},
		"device":        {profile.device},
		"__wflow__":     {"true"},
		"__ajax__":      {"true"},
		"__metablock__": {profile.metablock},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/differential/changeset/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("X-Phabricator-Csrf", token)
	req.Header.Set("X-Phabricator-Via", "/D"+strconv.Itoa(revisionID))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	cookies.Apply(req)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading changeset: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("changeset status %d", resp.StatusCode)
	}
	return string(body), nil
}
