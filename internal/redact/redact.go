package redact

import (
	"regexp"
	"sort"
	"strings"
)

const placeholder = "[REDACTED]"

// bare patterns are replaced entirely.
var barePatterns = []*regexp.Regexp{
	// Conduit API and CLI tokens
	regexp.MustCompile(`\b(?:api|cli)-[a-z0-9]{28}\b`),
}

// keyed patterns keep capture group 1 (the key and separator).
var keyedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(api\.token=)[^&\s]+`),
	regexp.MustCompile(`(?i)\b((?:phsid|phusr|phcid)\s*=\s*)[^;\s]+`),
	regexp.MustCompile(`(?i)(x-phabricator-csrf\s*[:=]\s*)\S+`),
	regexp.MustCompile(`(name="__csrf__"[^>]*?value=")[^"]+`),
	regexp.MustCompile(`("current":")[^"]+`),
}

// Secrets replaces detected credentials in text with [REDACTED]. Keyed
// patterns keep their key so log lines stay readable.
func Secrets(text string) string {
	result := text
	for _, pat := range barePatterns {
		result = pat.ReplaceAllString(result, placeholder)
	}
	for _, pat := range keyedPatterns {
		result = pat.ReplaceAllString(result, "${1}"+placeholder)
	}
	return result
}

// Token masks a single credential value, keeping a short prefix so distinct
// tokens can still be told apart in logs.
func Token(value string) string {
	if len(value) <= 8 {
		return placeholder
	}
	return value[:4] + "…" + placeholder
}

// Cookies renders cookie names with masked values, sorted by name.
func Cookies(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + placeholder
	}
	return strings.Join(parts, "; ")
}
