package conduit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/phabmd/internal/cache"
	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/redact"
)

const (
	maxRetries = 3
	pageLimit  = 100
)

// Client talks to one Phabricator instance.
type Client struct {
	baseURL string
	token   string
	httpCli *http.Client
	logger  *slog.Logger

	phids        *cache.Memo[int, string]
	transactions *cache.Memo[string, []Transaction]
}

// NewClient creates a Conduit client for baseURL authenticated with token.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return newClient(baseURL, token, &http.Client{Timeout: timeout}, logger)
}

func newClient(baseURL, token string, httpCli *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpCli:      httpCli,
		logger:       logging.OrDiscard(logger),
		phids:        cache.New[int, string](),
		transactions: cache.New[string, []Transaction](),
	}
}

// BaseURL returns the instance root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// call invokes a Conduit method and returns its "result" member.
func (c *Client) call(ctx context.Context, method string, params url.Values) (gjson.Result, error) {
	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("api.token", c.token)
	endpoint := c.baseURL + "/api/" + method

	var result gjson.Result
	err := retryWithBackoff(ctx, maxRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("conduit call", "method", method, "params", redact.Secrets(form.Encode()))

		resp, err := c.httpCli.Do(req)
		if err != nil {
			return fmt.Errorf("calling %s: %w", method, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
		}
		if !gjson.ValidBytes(body) {
			return fmt.Errorf("parsing %s response: invalid JSON: %s", method, truncate(string(body), 200))
		}

		doc := gjson.ParseBytes(body)
		if code := doc.Get("error_code"); code.Exists() && code.Type != gjson.Null && code.String() != "" {
			return &APIError{Code: code.String(), Info: doc.Get("error_info").String()}
		}
		result = doc.Get("result")
		return nil
	})
	return result, err
}

// RevisionPHID resolves a numeric revision id (the 123 in D123) to its PHID.
func (c *Client) RevisionPHID(ctx context.Context, revisionID int) (string, error) {
	if phid, ok := c.phids.Get(revisionID); ok {
		return phid, nil
	}
	result, err := c.call(ctx, "differential.revision.search", url.Values{
		"constraints[ids][0]": {strconv.Itoa(revisionID)},
	})
	if err != nil {
		return "", fmt.Errorf("searching revision D%d: %w", revisionID, err)
	}
	phid := result.Get("data.0.phid").String()
	if phid == "" {
		return "", fmt.Errorf("revision D%d not found", revisionID)
	}
	return c.phids.Put(revisionID, phid), nil
}

// Transactions returns every transaction on an object, oldest page first,
// following the result cursor until it is exhausted.
func (c *Client) Transactions(ctx context.Context, objectPHID string) ([]Transaction, error) {
	if txs, ok := c.transactions.Get(objectPHID); ok {
		return txs, nil
	}

	var all []Transaction
	after := ""
	for page := 1; ; page++ {
		params := url.Values{
			"objectIdentifier": {objectPHID},
			"limit":            {strconv.Itoa(pageLimit)},
		}
		if after != "" {
			params.Set("after", after)
		}
		result, err := c.call(ctx, "transaction.search", params)
		if err != nil {
			return nil, fmt.Errorf("listing transactions for %s: %w", objectPHID, err)
		}
		result.Get("data").ForEach(func(_, v gjson.Result) bool {
			all = append(all, parseTransaction(v))
			return true
		})

		next := result.Get("cursor.after")
		c.logger.Debug("transaction page", "object", objectPHID, "page", page, "total", len(all))
		if !next.Exists() || next.Type == gjson.Null || next.String() == "" || next.String() == after {
			break
		}
		after = next.String()
	}
	return c.transactions.Put(objectPHID, all), nil
}

// User looks up a user by PHID.
func (c *Client) User(ctx context.Context, phid string) (User, error) {
	result, err := c.call(ctx, "user.search", url.Values{
		"constraints[phids][0]": {phid},
	})
	if err != nil {
		return User{}, fmt.Errorf("looking up user %s: %w", phid, err)
	}
	first := result.Get("data.0")
	if !first.Exists() {
		return User{}, fmt.Errorf("user %s not found", phid)
	}
	u := parseUser(first)
	if u.PHID == "" {
		u.PHID = phid
	}
	return u, nil
}

// LatestDiffID returns the id of the newest diff attached to a revision, or
// "" when the revision has none.
func (c *Client) LatestDiffID(ctx context.Context, revisionID int) (string, error) {
	result, err := c.call(ctx, "differential.diff.search", url.Values{
		"constraints[revisionIDs][0]": {strconv.Itoa(revisionID)},
		"order":                       {"newest"},
		"limit":                       {"1"},
	})
	if err != nil {
		return "", fmt.Errorf("searching diffs of D%d: %w", revisionID, err)
	}
	id := result.Get("data.0.id")
	if !id.Exists() || id.Type == gjson.Null {
		return "", nil
	}
	return id.String(), nil
}

// DiffIDs lists the diff ids referenced by a revision's transactions in
// first-seen order. When no transaction names a diff the newest diff of the
// revision is returned instead.
func (c *Client) DiffIDs(ctx context.Context, revisionID int) ([]string, error) {
	phid, err := c.RevisionPHID(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	txs, err := c.Transactions(ctx, phid)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, tx := range txs {
		id := tx.Fields.DiffID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		return ids, nil
	}

	latest, err := c.LatestDiffID(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if latest == "" {
		return nil, nil
	}
	return []string{latest}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
