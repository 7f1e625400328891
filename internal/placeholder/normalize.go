package placeholder

import (
	"regexp"
	"strings"
)

// tokenPattern matches a double-brace placeholder token. The inner key may
// contain letters, digits, underscores, hyphens and spaces; surrounding
// whitespace inside the braces is ignored.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\- ]+?)\s*\}\}`)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	invalidKeyChars = regexp.MustCompile(`[^A-Z0-9_]`)
)

// NormalizeKey canonicalizes a raw placeholder key: whitespace runs become
// single underscores, letters are uppercased, and any remaining character
// outside [A-Z0-9_] is stripped. Keys that normalize to the empty string
// are unusable and must be skipped by callers.
func NormalizeKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = whitespaceRun.ReplaceAllString(key, "_")
	key = strings.ToUpper(key)
	return invalidKeyChars.ReplaceAllString(key, "")
}

// MatchToken extracts a placeholder token from a single OCR word. It
// returns the raw matched token, the normalized key, and whether the text
// contained a well-formed token with a usable key. Tokens split across
// multiple OCR words do not match; that limitation is part of the
// detection contract.
func MatchToken(text string) (raw, key string, ok bool) {
	m := tokenPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	key = NormalizeKey(m[1])
	if key == "" {
		return "", "", false
	}
	return m[0], key, true
}
