package webui

import (
	"context"
	"regexp"

	"github.com/dshills/phabmd/internal/session"
)

// refStage is one step of the reference cascade. A stage matches when any
// of its patterns yields a value at least minLen characters long.
type refStage struct {
	name     string
	patterns []*regexp.Regexp
	minLen   int
	// whole uses the full match instead of the first capture group.
	whole bool
}

var (
	stageQueryParam = refStage{
		name:     "query-param",
		patterns: []*regexp.Regexp{regexp.MustCompile(`ref=(\d+)`)},
	}
	stageScriptEncodings = refStage{
		name: "script-encodings",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`"ref":"(\d+)"`),
			regexp.MustCompile(`'ref':\s*'(\d+)'`),
			regexp.MustCompile(`ref:\s*'(\d+)'`),
			regexp.MustCompile(`ref:\s*(\d+)`),
			regexp.MustCompile(`\bC(\d{7,8})[ON]L\d+`),
		},
		minLen: 7,
	}
	stageBareNumber = refStage{
		name:     "bare-number",
		patterns: []*regexp.Regexp{regexp.MustCompile(`\b\d{7,8}\b`)},
		whole:    true,
	}
	stageChangesetURL = refStage{
		name:     "changeset-url",
		patterns: []*regexp.Regexp{regexp.MustCompile(`differential/changeset/[^?]*\?[^&]*ref=(\d+)`)},
	}
)

// refCascade is tried in order; the first stage with any match wins.
var refCascade = []refStage{
	stageQueryParam,
	stageScriptEncodings,
	stageBareNumber,
	stageChangesetURL,
}

func (s refStage) extract(html string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, re := range s.patterns {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			v := m[0]
			if !s.whole {
				v = m[1]
			}
			if len(v) < s.minLen || seen[v] {
				continue
			}
			seen[v] = true
			refs = append(refs, v)
		}
	}
	return refs
}

// ExtractReferences returns the changeset references embedded in a revision
// page, deduplicated in first-seen order.
func ExtractReferences(html string) []string {
	refs, _ := extractReferences(html)
	return refs
}

func extractReferences(html string) ([]string, string) {
	for _, stage := range refCascade {
		if refs := stage.extract(html); len(refs) > 0 {
			return refs, stage.name
		}
	}
	return nil, ""
}

// DiscoverReferences loads the revision page and extracts its changeset
// references. Any failure yields an empty list.
func (c *Client) DiscoverReferences(ctx context.Context, revisionID int, cookies session.Cookies) []string {
	html, err := c.fetchPage(ctx, revisionID, cookies)
	if err != nil {
		c.logger.Debug("reference discovery failed", "revision", revisionID, "error", err)
		return nil
	}
	refs, stage := extractReferences(html)
	c.logger.Debug("discovered changeset references", "revision", revisionID, "count", len(refs), "stage", stage)
	return refs
}
