package matching

import (
	"regexp"
	"strings"
)

// Temporal token shapes stripped during pattern extraction. Full month names
// before abbreviations so the alternation consumes "January" rather than
// "Jan" + leftover.
var (
	reSlashDate  = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	reISODate    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	reDottedDate = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`)
	reOrdinalDay = regexp.MustCompile(`(?i)\b\d{1,2}(st|nd|rd|th)\b`)
	reMonthToken = regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\.?,?\s*\d{0,4}\b`)

	reDanglingStop = regexp.MustCompile(`(?i)\s+(for|of|the|a|an|to|in|on)\s*$`)
)

// stopwords are the tokens that never count as pattern content on their own.
var stopwords = map[string]struct{}{
	"for": {}, "of": {}, "the": {}, "a": {}, "an": {}, "to": {}, "in": {}, "on": {},
}

// ExtractPattern generalizes a confirmed line description into a reusable
// service-mapping pattern by stripping dates, ordinals and month names, so
// "Monthly Software Subscription Feb 2026" still matches next March's
// invoice. If stripping leaves nothing but stopwords, the normalized original
// description is returned instead — a learned pattern must never be so
// generic it matches everything.
func ExtractPattern(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}

	s := description
	s = reSlashDate.ReplaceAllString(s, " ")
	s = reISODate.ReplaceAllString(s, " ")
	s = reDottedDate.ReplaceAllString(s, " ")
	s = reOrdinalDay.ReplaceAllString(s, " ")
	s = reMonthToken.ReplaceAllString(s, " ")

	// Trim prepositions left dangling at the end by the stripping. Words in
	// the middle of a phrase ("subscription for the month") are untouched.
	for {
		trimmed := reDanglingStop.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}

	pattern := Normalize(s)
	if countContentTokens(pattern) == 0 {
		return Normalize(description)
	}
	return pattern
}

func countContentTokens(normalized string) int {
	n := 0
	for _, tok := range strings.Fields(normalized) {
		if _, stop := stopwords[tok]; !stop {
			n++
		}
	}
	return n
}
