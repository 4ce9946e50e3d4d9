package session

import (
	"errors"
	"maps"
	"net/http"
	"sort"
	"strings"
)

// Required cookie names for an authenticated Phabricator session.
const (
	SessionCookie = "phsid"
	UserCookie    = "phusr"
)

// ErrNoCredentials is returned when no valid session could be located.
// Callers proceed unauthenticated.
var ErrNoCredentials = errors.New("no phabricator session cookies found")

// Cookies maps cookie names to values.
type Cookies map[string]string

// Valid reports whether both required cookies are present.
func (c Cookies) Valid() bool {
	if c == nil {
		return false
	}
	_, sid := c[SessionCookie]
	_, usr := c[UserCookie]
	return sid && usr
}

// Names returns the cookie names in sorted order.
func (c Cookies) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Header renders the cookies as a Cookie header value, sorted by name.
func (c Cookies) Header() string {
	parts := make([]string, 0, len(c))
	for _, name := range c.Names() {
		parts = append(parts, name+"="+c[name])
	}
	return strings.Join(parts, "; ")
}

// Apply attaches the cookies to req. A nil or empty set leaves req untouched.
func (c Cookies) Apply(req *http.Request) {
	if len(c) == 0 {
		return
	}
	req.Header.Set("Cookie", c.Header())
}

// Clone returns an independent copy.
func (c Cookies) Clone() Cookies {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// ParseOverride parses a ";"-separated list of name=value pairs. The result
// is only accepted when both required cookies are present.
func ParseOverride(s string) (Cookies, bool) {
	cookies := make(Cookies)
	for _, pair := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	if !cookies.Valid() {
		return nil, false
	}
	return cookies, true
}
