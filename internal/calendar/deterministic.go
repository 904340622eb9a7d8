package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/scribe/internal/temporal"
)

// Deterministic extracts events with an ordered rule table of regular
// expressions. It needs no network and always produces the same
// output for the same input and reference date.
type Deterministic struct {
	maxDays int
}

// NewDeterministic creates an extractor that rejects events further
// than maxDays out.
func NewDeterministic(maxDays int) *Deterministic {
	return &Deterministic{maxDays: maxDays}
}

// rule pairs a pattern with a parser turning its submatches into a
// title and a day offset. A negative offset marks a failed parse.
type rule struct {
	re    *regexp.Regexp
	parse func(m []string, ref time.Time) (string, int)
}

const offsetExpr = `((?:\d+\s+(?:days?|weeks?|months?)(?:\s+and)?\s*)+)`

var rules = []rule{
	// "I have a wedding in 2 weeks", "there's a deadline in 3 weeks 4 days"
	{
		re: regexp.MustCompile(`(?i)\b(?:i have|i've got|there is|there's)\s+(?:a|an|my)\s+([a-z][a-z\s]{1,40}?)\s+in\s+` + offsetExpr),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve("in "+m[2], ref)
		},
	},
	// "my graduation is next week", "the recital is tomorrow"
	{
		re: regexp.MustCompile(`(?i)\b(?:my|the|a|an|our)\s+([a-z][a-z\s]{1,40}?)\s+is\s+(today|tonight|tomorrow|next week|next month)\b`),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve(m[2], ref)
		},
	},
	// "dentist appointment tomorrow", "concert next week"
	{
		re: regexp.MustCompile(`(?i)\b([a-z][a-z\s]{1,40}?)\s+(today|tonight|tomorrow|next week|next month)\b`),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve(m[2], ref)
		},
	},
	// "team standup on monday", "going to a concert next friday"
	{
		re: regexp.MustCompile(`(?i)\b([a-z][a-z\s]{1,40}?)\s+(?:is\s+)?(?:on\s+|next\s+)(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve(m[2], ref)
		},
	},
	// "car meet in 3 weeks 4 days"
	{
		re: regexp.MustCompile(`(?i)\b([a-z][a-z\s]{1,40}?)\s+in\s+` + offsetExpr),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve("in "+m[2], ref)
		},
	},
	// "schedule a team dinner for march 23"
	{
		re: regexp.MustCompile(`(?i)\b(?:schedule|plan|book)\s+(?:a|an|my|the)?\s*([a-z][a-z\s]{1,40}?)\s+(?:for|on)\s+((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
		parse: func(m []string, ref time.Time) (string, int) {
			return m[1], temporal.Resolve(m[2], ref)
		},
	},
}

// Leading and trailing filler stripped from raw title captures.
var titleFiller = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "my": {}, "our": {}, "his": {}, "her": {},
	"i": {}, "we": {}, "is": {}, "was": {}, "be": {}, "on": {}, "at": {},
	"in": {}, "for": {}, "to": {}, "go": {}, "going": {}, "have": {},
	"has": {}, "got": {}, "attending": {}, "heading": {}, "and": {},
	"that": {}, "this": {}, "yes": {}, "no": {}, "oh": {}, "so": {},
	"but": {}, "well": {}, "also": {},
}

// filler reports whether a word should be trimmed from a title edge.
// Single letters are fragments left by apostrophe splits.
func filler(w string) bool {
	if len(w) <= 1 {
		return true
	}
	_, ok := titleFiller[w]
	return ok
}

// Titles that carry no information on their own.
var rejectedTitles = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "thing": {}, "things": {},
	"something": {}, "anything": {}, "one": {}, "some": {}, "stuff": {},
	"event": {}, "appointment": {},
}

// Extract runs every rule over the text and returns the surviving
// events, deduplicated by title and offset, in rule order.
func (d *Deterministic) Extract(text string, ref time.Time) []Event {
	var events []Event
	seen := map[string]struct{}{}

	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			rawTitle, days := r.parse(m, ref)
			title, ok := cleanTitle(rawTitle)
			if !ok {
				continue
			}
			if days < 0 || days > d.maxDays {
				continue
			}
			key := strings.ToLower(title) + "\x00" + strconv.Itoa(days)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			events = append(events, Event{
				Title:      title,
				Days:       days,
				Color:      ColorFor(title),
				Confidence: 0.9,
				Source:     SourceDeterministic,
			})
		}
	}
	return events
}

// cleanTitle strips filler words from both ends, rejects throwaway
// titles, and title-cases the rest.
func cleanTitle(raw string) (string, bool) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))

	for len(words) > 0 && filler(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && filler(words[len(words)-1]) {
		words = words[:len(words)-1]
	}

	if len(words) == 0 {
		return "", false
	}
	joined := strings.Join(words, " ")
	if len(joined) < 3 {
		return "", false
	}
	if _, bad := rejectedTitles[joined]; bad {
		return "", false
	}

	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " "), true
}
