package playermatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD and drops combining marks, so
// "Jokić" and "Jokic" normalize identically.
var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace. All lookups and comparisons run on normalized strings.
func Normalize(name string) string {
	out, _, err := transform.String(stripDiacritics, name)
	if err != nil {
		out = name
	}

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range strings.ToLower(out) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '-':
			b.WriteByte(' ')
		}
		// Apostrophes and other punctuation are dropped entirely.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
