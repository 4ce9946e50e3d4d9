package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/dshills/phabmd/internal/cache"
	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/redact"
)

// cookieStoreName is the Firefox cookie database file inside a profile.
const cookieStoreName = "cookies.sqlite"

// Locator resolves session cookies for a domain.
type Locator struct {
	override    string
	profileRoot string
	logger      *slog.Logger
	memo        *cache.Memo[string, resolution]
}

type resolution struct {
	cookies Cookies
	err     error
}

// NewLocator creates a Locator. override is the raw PHABRICATOR_COOKIES
// value (may be empty); profileRoot overrides the OS default Firefox profile
// directory (may be empty).
func NewLocator(override, profileRoot string, logger *slog.Logger) *Locator {
	return &Locator{
		override:    override,
		profileRoot: profileRoot,
		logger:      logging.OrDiscard(logger),
		memo:        cache.New[string, resolution](),
	}
}

// Resolve returns the session cookies for domain. The first outcome for a
// domain, success or failure, is kept for the rest of the Locator's life.
// A failure wraps ErrNoCredentials, except when ctx ends first: that error
// wraps the context error and is not kept.
func (l *Locator) Resolve(ctx context.Context, domain string) (Cookies, error) {
	res, ok := l.memo.Get(domain)
	if !ok {
		cookies, err := l.resolve(ctx, domain)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("resolving session cookies for %s: %w", domain, ctxErr)
			}
		}
		res = l.memo.Put(domain, resolution{cookies: cookies, err: err})
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.cookies.Clone(), nil
}

func (l *Locator) resolve(ctx context.Context, domain string) (Cookies, error) {
	if l.override != "" {
		if cookies, ok := ParseOverride(l.override); ok {
			l.logger.Debug("using session cookies from override", "cookies", redact.Cookies(cookies))
			return cookies, nil
		}
		l.logger.Debug("cookie override ignored: missing phsid or phusr")
	}

	root := l.profileRoot
	if root == "" {
		r, err := DefaultProfileRoot()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
		root = r
	}

	profiles, err := findProfiles(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}

	for _, p := range profiles {
		cookies, err := readCookies(ctx, p.store, domain)
		if err != nil {
			l.logger.Debug("skipping browser profile", "profile", p.dir, "error", err)
			continue
		}
		if cookies.Valid() {
			l.logger.Debug("found session cookies", "profile", p.dir, "cookies", redact.Cookies(cookies))
			return cookies, nil
		}
	}
	return nil, fmt.Errorf("%w: no profile under %s has %s and %s for %s",
		ErrNoCredentials, root, SessionCookie, UserCookie, domain)
}

// DefaultProfileRoot returns the Firefox profile directory for this OS.
func DefaultProfileRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	var configDir string
	if runtime.GOOS == "windows" {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
	}
	return profileRootFor(runtime.GOOS, home, configDir), nil
}

func profileRootFor(goos, home, configDir string) string {
	switch goos {
	case "windows":
		return filepath.Join(configDir, "Mozilla", "Firefox", "Profiles")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

type profile struct {
	dir      string
	store    string
	modified time.Time
}

// findProfiles lists profile directories holding a cookie store, newest
// store first.
func findProfiles(root string) ([]profile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading browser profile root: %w", err)
	}
	var profiles []profile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		store := filepath.Join(dir, cookieStoreName)
		info, err := os.Stat(store)
		if err != nil || info.IsDir() {
			continue
		}
		profiles = append(profiles, profile{dir: dir, store: store, modified: info.ModTime()})
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles with %s found in %s", cookieStoreName, root)
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].modified.After(profiles[j].modified)
	})
	return profiles, nil
}
