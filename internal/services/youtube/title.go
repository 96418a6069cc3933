package youtube

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTitle cleans a raw upstream title for display and artifact naming:
// control characters are dropped, whitespace runs collapse to single spaces,
// and single-case titles are re-cased to title case.
func NormalizeTitle(raw string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsControl(r):
		case unicode.IsSpace(r):
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		default:
			cleaned.WriteRune(r)
			prevSpace = false
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	if title == strings.ToUpper(title) || title == strings.ToLower(title) {
		return cases.Title(language.Und).String(strings.ToLower(title))
	}
	return title
}
