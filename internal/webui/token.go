package webui

import (
	"context"
	"regexp"

	"github.com/dshills/phabmd/internal/redact"
	"github.com/dshills/phabmd/internal/session"
)

// PlaceholderToken is sent when no anti-forgery token could be recovered.
const PlaceholderToken = "dummy"

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`__csrf__.*?value="([^"]+)"`),
	regexp.MustCompile(`"current":"([^"]+)"`),
}

// ExtractToken finds the anti-forgery token in a revision page: the hidden
// __csrf__ form field first, then the "current" JSON literal.
func ExtractToken(html string) (string, bool) {
	for _, re := range tokenPatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// FetchToken loads the revision page and extracts its anti-forgery token.
// It reports false when the page could not be fetched or holds no token.
func (c *Client) FetchToken(ctx context.Context, revisionID int, cookies session.Cookies) (string, bool) {
	html, err := c.fetchPage(ctx, revisionID, cookies)
	if err != nil {
		c.logger.Debug("token fetch failed", "revision", revisionID, "error", err)
		return "", false
	}
	token, ok := ExtractToken(html)
	if !ok {
		c.logger.Debug("no anti-forgery token on revision page", "revision", revisionID)
		return "", false
	}
	c.logger.Debug("found anti-forgery token", "revision", revisionID, "token", redact.Token(token))
	return token, true
}
