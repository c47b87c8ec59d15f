// Package textnorm strips accents and folds free text to the ASCII subset
// accepted by the drawing tools that consume the generated files.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripMarks decomposes s (NFD) and drops combining marks, so "São Paulo"
// becomes "Sao Paulo". Non-Latin letters are kept.
func StripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CityCode returns the three-character city abbreviation used in site
// identifiers: marks stripped, spaces, apostrophes and hyphens removed,
// upper-cased. Shorter names yield shorter codes.
func CityCode(city string) string {
	s := StripMarks(city)
	s = strings.NewReplacer(" ", "", "'", "", "-", "").Replace(s)
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// ASCII folds s to ASCII (NFKD, non-ASCII dropped) and keeps only letters,
// digits, spaces, dots and hyphens.
func ASCII(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r > unicode.MaxASCII:
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
