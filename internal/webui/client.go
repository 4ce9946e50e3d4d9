package webui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/phabmd/internal/config"
	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/session"
)

// maxBodySize caps how much of a page or changeset response is read.
const maxBodySize = 32 << 20

// Options configures a Client. Zero values select defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	Scoring      Scoring
	ProbeOffsets []int
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Client fetches revision pages and changesets from one Phabricator instance.
type Client struct {
	baseURL      string
	userAgent    string
	httpCli      *http.Client
	scoring      Scoring
	probeOffsets []int
	logger       *slog.Logger
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    opts.UserAgent,
		httpCli:      opts.HTTPClient,
		scoring:      opts.Scoring,
		probeOffsets: opts.ProbeOffsets,
		logger:       logging.OrDiscard(opts.Logger),
	}
	if c.userAgent == "" {
		c.userAgent = config.DefaultUserAgent
	}
	if c.httpCli == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		c.httpCli = &http.Client{Timeout: timeout}
	}
	if c.scoring == (Scoring{}) {
		c.scoring = DefaultScoring()
	}
	if c.probeOffsets == nil {
		c.probeOffsets = DefaultProbeOffsets()
	}
	return c
}

// BaseURL returns the instance root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) revisionURL(revisionID int) string {
	return c.baseURL + "/D" + strconv.Itoa(revisionID)
}

// fetchPage GETs the revision page with the session cookies attached.
func (c *Client) fetchPage(ctx context.Context, revisionID int, cookies session.Cookies) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.revisionURL(revisionID), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	cookies.Apply(req)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching D%d: %w", revisionID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading D%d: %w", revisionID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching D%d: status %d", revisionID, resp.StatusCode)
	}
	return string(body), nil
}
