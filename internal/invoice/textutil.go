package invoice

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonKeyPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Fold lowercases and strips diacritics, so "Engång" becomes "engang".
func Fold(value string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return folded
}

// FoldKey produces a stable lookup key: folded text with runs of anything
// outside a-z0-9 collapsed to single dashes.
func FoldKey(value string) string {
	folded := nonKeyPattern.ReplaceAllString(Fold(value), "-")
	return strings.Trim(folded, "-")
}
