package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeForMatch folds text into the gazetteer matching form: lower case,
// no diacritics, only [a-z0-9] and single spaces, trimmed.
func NormalizeForMatch(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(stripMarks, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}

	var sb strings.Builder

	sb.Grow(len(folded))

	pendingSpace := false

	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}

			pendingSpace = false

			sb.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}

	return sb.String()
}

// NormalizeText collapses whitespace runs and trims. Scraped display fields
// go through it before storage.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
