package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace folds any whitespace run (newlines and tabs included)
// into a single space and trims the ends.
func CollapseWhitespace(s string) string {
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var longWordRegex = regexp.MustCompile(`[a-zA-Z]{5,}`)

// HasSubstantiveWord reports whether the string contains a run of five or
// more ascii letters. short strings without one are usually numbering or
// layout junk rather than prose.
func HasSubstantiveWord(s string) bool {
	return longWordRegex.MatchString(s)
}
