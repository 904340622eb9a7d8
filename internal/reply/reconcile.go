// Package reply validates and repairs assistant replies that carry
// calendar directives. Duplicate directives collapse to one, and a
// wrong "no events" sentinel is replaced by re-extracting the
// original utterance.
package reply

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/scribe/internal/calendar"
	"github.com/kalambet/scribe/internal/temporal"
)

var (
	directiveRe = regexp.MustCompile(`Calendar:\s*(\d+)\s+days?\s+from\s+today\s+(.+?)\.!\.`)
	sentinelRe  = regexp.MustCompile(`Calendar:\s*None[.!]*`)
	spacesRe    = regexp.MustCompile(`[ \t]{2,}`)
)

// FormatDirective renders the canonical calendar directive.
func FormatDirective(title string, days int) string {
	return fmt.Sprintf("Calendar: %d days from today %s.!.", days, title)
}

// Reconciler repairs replies using a deterministic extractor to
// recover events the reply should have announced.
type Reconciler struct {
	extractor *calendar.Deterministic
}

// NewReconciler creates a Reconciler around the given extractor.
func NewReconciler(extractor *calendar.Deterministic) *Reconciler {
	return &Reconciler{extractor: extractor}
}

// Reconcile returns the repaired reply. It collapses duplicate
// directives, keeping the first of each (title, offset) pair, and
// substitutes a wrong sentinel with directives re-extracted from the
// utterance plus an acknowledgement. Reconciling an already repaired
// reply changes nothing.
func (r *Reconciler) Reconcile(replyText, utterance string, ref time.Time) string {
	out := replyText
	if sentinelRe.MatchString(out) {
		if events := r.extractor.Extract(utterance, ref); len(events) > 0 {
			out = substituteSentinel(out, events)
		}
	}

	// Collapse after substitution: a synthesized directive may
	// restate one already present in the reply.
	out = collapseDuplicates(out)

	out = spacesRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// collapseDuplicates blanks every directive restating an earlier
// (title, offset) pair. Surrounding prose is untouched.
func collapseDuplicates(s string) string {
	seen := map[string]struct{}{}
	return directiveRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := directiveRe.FindStringSubmatch(m)
		key := strings.ToLower(strings.TrimSpace(sub[2])) + "\x00" + sub[1]
		if _, dup := seen[key]; dup {
			return ""
		}
		seen[key] = struct{}{}
		return m
	})
}

// substituteSentinel replaces the first sentinel with directives for
// the recovered events and an acknowledgement naming each one. Any
// further sentinels are dropped.
func substituteSentinel(s string, events []calendar.Event) string {
	var parts []string
	for _, e := range events {
		parts = append(parts, FormatDirective(e.Title, e.Days))
	}
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("Noted %s, %s.", e.Title, temporal.FormatRelative(e.Days)))
	}
	replacement := strings.Join(parts, " ")

	first := true
	return sentinelRe.ReplaceAllStringFunc(s, func(string) string {
		if first {
			first = false
			return replacement
		}
		return ""
	})
}

// Directives parses every calendar directive in a reply, in order.
func Directives(s string) []calendar.Event {
	var events []calendar.Event
	for _, m := range directiveRe.FindAllStringSubmatch(s, -1) {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		events = append(events, calendar.Event{
			Title: title,
			Days:  days,
			Color: calendar.ColorFor(title),
		})
	}
	return events
}
