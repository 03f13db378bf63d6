package matching

import (
	"regexp"
	"strings"
)

var (
	reNonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes free text for comparison: lowercase, punctuation
// runs become a single space, whitespace collapses, ends trimmed. Idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = reNonWord.ReplaceAllString(s, " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
