package crawl

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// normalizeSpace collapses runs of whitespace into single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateText cuts text to at most maxLen bytes, appending an ellipsis when
// truncated. The cut always lands on a rune boundary so multibyte text stays
// valid UTF-8.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	cut := maxLen
	if maxLen > 3 {
		cut = maxLen - 3
	}
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	if maxLen > 3 {
		return text[:cut] + "..."
	}
	return text[:cut]
}

// sanitizeText strips any leftover tags and invalid UTF-8 from extracted text
// before it reaches the database.
func sanitizeText(s string) string {
	s = stripPolicy.Sanitize(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return normalizeSpace(s)
}
