// Package clarify implements the Clarification Engine: uncertainty
// detection over a completed response and question extraction, per
// spec.md §4.8.
package clarify

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// hedgingPhrases are checked case-insensitively against the response text.
// The localized entries cover the same hedge classes in French, Spanish,
// German, and Czech, since a model's response language follows the
// uploaded documents' language, not the engine's.
var hedgingPhrases = []string{
	"not sure", "unclear", "ambiguous", "could be", "might be", "possibly", "probably",
	"pas sûr", "incertain", "ambigu", "peut-être",
	"no estoy seguro", "no está claro", "ambiguo", "podría ser", "posiblemente",
	"nicht sicher", "unklar", "mehrdeutig", "könnte sein", "möglicherweise",
	"nejsem si jistý", "není jasné", "nejednoznačné", "mohlo by", "možná",
}

var (
	multiQuestionMark = regexp.MustCompile(`\?{2,}`)
	whichOfPattern    = regexp.MustCompile(`(?i)which of\s`)
	markerComment     = regexp.MustCompile(`<!--\s*QUESTION\?:\s*"([^"]*)"\s*-->`)
	plainQuestionLine = regexp.MustCompile(`(?m)^[ \t]*(.+\?)[ \t]*$`)
)

// NeedsClarification reports whether any uncertainty pattern matches text.
func NeedsClarification(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return multiQuestionMark.MatchString(text) ||
		whichOfPattern.MatchString(text) ||
		markerComment.MatchString(text)
}

// dedupeThreshold is the Levenshtein distance below which two extracted
// questions are treated as duplicates of each other rather than distinct
// questions, to absorb trivial rewordings between a marker-form question
// and a plain-line echo of the same question.
const dedupeThreshold = 3

// ExtractQuestions collects, in order: (a) explicit `<!-- QUESTION?: "..."
// -->` marker questions, then (b) plain lines ending in "?" longer than 10
// characters that are not already captured and do not lie inside marker
// syntax. Results are deduplicated preserving first-seen order.
func ExtractQuestions(text string) []string {
	var ordered []string
	seen := func(candidate string) bool {
		for _, q := range ordered {
			if q == candidate {
				return true
			}
			if levenshtein.ComputeDistance(q, candidate) <= dedupeThreshold {
				return true
			}
		}
		return false
	}

	markerSpans := markerComment.FindAllStringSubmatchIndex(text, -1)
	for _, m := range markerSpans {
		q := strings.TrimSpace(text[m[2]:m[3]])
		if q != "" && !seen(q) {
			ordered = append(ordered, q)
		}
	}

	withoutMarkers := markerComment.ReplaceAllString(text, "")
	for _, m := range plainQuestionLine.FindAllStringSubmatch(withoutMarkers, -1) {
		line := strings.TrimSpace(m[1])
		if len(line) <= 10 {
			continue
		}
		if !seen(line) {
			ordered = append(ordered, line)
		}
	}

	return ordered
}
