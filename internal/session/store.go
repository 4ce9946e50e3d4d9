package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const cookieQuery = `SELECT name, value FROM moz_cookies WHERE host LIKE ?`

// readCookies reads every cookie whose host contains domain from a Firefox
// cookie store. A store locked by a running browser is copied to a temporary
// directory and read from there; the copy is removed before returning.
func readCookies(ctx context.Context, store, domain string) (Cookies, error) {
	cookies, err := queryCookies(ctx, store, domain)
	if err == nil || !isLocked(err) {
		return cookies, err
	}

	copyPath, cleanup, err := copyToTemp(store)
	if err != nil {
		return nil, fmt.Errorf("copying locked cookie store: %w", err)
	}
	defer cleanup()
	return queryCookies(ctx, copyPath, domain)
}

func queryCookies(ctx context.Context, path, domain string) (Cookies, error) {
	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open cookie store: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, cookieQuery, "%"+domain+"%")
	if err != nil {
		return nil, fmt.Errorf("query cookie store: %w", err)
	}
	defer rows.Close()

	cookies := make(Cookies)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan cookie row: %w", err)
		}
		cookies[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cookie rows: %w", err)
	}
	return cookies, nil
}

// readOnlyDSN builds a SQLite URI that opens path read-only.
func readOnlyDSN(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String()
}

// isLocked reports whether err means the store is held by another process
// or was caught mid-write.
func isLocked(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CORRUPT:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database disk image is malformed")
}

// copyToTemp copies a cookie store and its write-ahead log, when present, into
// a fresh temporary directory. cleanup removes the directory and is safe to
// call more than once.
func copyToTemp(store string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "phabmd-cookies-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	dst := filepath.Join(dir, cookieStoreName)
	if err := copyFile(store, dst); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if _, err := os.Stat(store + "-wal"); err == nil {
		if err := copyFile(store+"-wal", dst+"-wal"); err != nil {
			cleanup()
			return "", func() {}, err
		}
	}
	return dst, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
