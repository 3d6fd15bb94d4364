// Package store persists board documents as one self-contained JSON file per
// board, atomically written and slug-named, with a short TTL read cache.
package store

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonAlnumRunRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify turns a board title into a filesystem-safe path stem: Unicode
// NFKD normalisation, lossy fold to ASCII, non-alphanumeric runs collapsed
// to a single '-', trimmed and lowercased. An empty result falls back to a
// fixed token rather than producing an unusable path.
func Slugify(value string) string {
	var ascii strings.Builder
	for _, r := range norm.NFKD.String(value) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r > unicode.MaxASCII {
			continue
		}
		ascii.WriteRune(r)
	}

	s := nonAlnumRunRe.ReplaceAllString(ascii.String(), "-")
	s = strings.Trim(s, "-")
	s = strings.ToLower(s)
	if s == "" {
		return "page"
	}
	return s
}
