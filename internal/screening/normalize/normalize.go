// Package normalize canonicalizes names and identifiers so that index writes
// and lookups compare the same forms.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Identifier uppercases the input and strips every character outside [A-Z0-9].
// Total and deterministic: empty input yields empty output.
func Identifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IdentifierType strips '.', '-', '#' and whitespace and uppercases, turning
// display forms like "R.F.C." into "RFC". Used to classify identifier kinds
// for filtering, not for matching.
func IdentifierType(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r == '.' || r == '-' || r == '#':
		case unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Name canonicalizes a person or entity name: decomposes Unicode to strip
// diacritics, uppercases, replaces non-word characters with spaces, collapses
// whitespace runs and trims. Idempotent.
func Name(raw string) string {
	decomposed := norm.NFD.String(raw)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark left over from decomposition
		}
		r = unicode.ToUpper(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
