package provider

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a name for lenient comparison: compatibility
// decomposition, combining marks removed, lowercased, anything that is not a
// letter or digit turned into a space, whitespace collapsed and trimmed.
//
//	NormalizeName("Café del Mar")     == "cafe del mar"
//	NormalizeName(" The-Office (US)") == "the office us"
func NormalizeName(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Und).String(folded)

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(mapped), " ")
}

// LenientNamesSet returns the distinct normalized forms of names.
func LenientNamesSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[NormalizeName(name)] = struct{}{}
	}
	return set
}

// LenientNameEquals compares two optional names after normalization. A nil
// name equals the empty string.
func LenientNameEquals(a, b *string) bool {
	var x, y string
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	return NormalizeName(x) == NormalizeName(y)
}
