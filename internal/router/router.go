// Package router decides where an utterance belongs: the calendar
// pipeline, the memory pipeline, or nowhere. Scoring is deterministic
// and regex-driven so the same input always routes the same way.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/scribe/internal/worthiness"
)

// Destination names the pipeline an utterance is routed to.
type Destination string

const (
	Calendar Destination = "calendar"
	Memory   Destination = "memory"
	Neither  Destination = "neither"
)

// Decision tuning. An utterance routes only when its best score
// clears the threshold and beats the runner-up by the margin.
const (
	scoreThreshold = 0.5
	scoreMargin    = 0.15
)

// Decision carries the routing verdict plus the worthiness result so
// downstream stages never re-assess the same utterance.
type Decision struct {
	Destination Destination
	Confidence  float64
	Reasoning   string
	Worthiness  worthiness.Result
}

var temporalRe = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|next week|next month|next (monday|tuesday|wednesday|thursday|friday|saturday|sunday)|on (monday|tuesday|wednesday|thursday|friday|saturday|sunday)|in \d+ (days?|weeks?|months?)|this (week|weekend|month))\b`)

var schedulingIndicatorRe = regexp.MustCompile(`(?i)\b(appointment|meeting|schedule|scheduled|reminder|remind|event|deadline|due|visit|interview|reservation|booking|booked|call|session)\b`)

var eventTypeRe = regexp.MustCompile(`(?i)\b(birthday|anniversary|wedding|graduation|vacation|trip|flight|concert|party|dinner|lunch|conference|exam|checkup|dentist|doctor)\b`)

var (
	haveEventRe    = regexp.MustCompile(`(?i)\b(i have|i've got|there's|there is)\s+(a|an|my)\s+\w+`)
	goingToRe      = regexp.MustCompile(`(?i)\b(going to|heading to|attending)\s+.{1,40}\b(this|next|tomorrow|today)\b`)
	interrogativRe = regexp.MustCompile(`(?i)^\s*(when|what|where|who|how|why|which|is|are|do|does|did|can|could|will|would|should)\b|\?`)
)

var (
	personalInfoRe = regexp.MustCompile(`(?i)\b(my name is|i'm allergic|i live in|i work at|my favorite|i was born|my \w+'s name is|my \w+ is called|my \w+ is named)\b`)
	firstPersonRe  = regexp.MustCompile(`(?i)^\s*(i|my|mine)\b`)
	preferenceRe   = regexp.MustCompile(`(?i)\b(i love|i like|i enjoy|i prefer|i hate|i dislike|my favorite|i want to|my goal|i plan to|i hope to)\b`)
	namedRelationRe = regexp.MustCompile(`(?i)\bmy \w+('s)? (name is|is called|is named)\b`)
	possessionRe    = regexp.MustCompile(`(?i)\bi have (a|an)\s+\w+.*\bin \d+ (days?|weeks?|months?)\b`)
	birthdayRe      = regexp.MustCompile(`(?i)\b(birthday|anniversary)\b`)
	explicitOffsetRe = regexp.MustCompile(`(?i)\bin \d+ (days?|weeks?)\b`)
)

// Route scores an utterance against both destinations and applies the
// decision table. Worthiness is evaluated exactly once, here.
func Route(text string) Decision {
	w := worthiness.Assess(text)

	clean := strings.TrimSpace(text)
	if clean == "" {
		return Decision{Destination: Neither, Confidence: 0, Reasoning: "empty input", Worthiness: w}
	}

	if w.Question {
		return Decision{
			Destination: Neither,
			Confidence:  0.9,
			Reasoning:   "questions are answered, not stored",
			Worthiness:  w,
		}
	}

	cal := calendarScore(clean)
	mem := memoryScore(clean)

	// Birthday statements without an explicit day offset belong to
	// memory even when the calendar score wins on points.
	if birthdayRe.MatchString(clean) && !explicitOffsetRe.MatchString(clean) {
		return Decision{
			Destination: Memory,
			Confidence:  clamp01(mem + 0.2),
			Reasoning:   "birthday or anniversary without an explicit offset is a durable fact",
			Worthiness:  w,
		}
	}

	switch {
	case cal >= scoreThreshold && cal >= mem+scoreMargin:
		return Decision{
			Destination: Calendar,
			Confidence:  clamp01(cal),
			Reasoning:   fmt.Sprintf("scheduling signals outweigh personal facts (%.2f vs %.2f)", cal, mem),
			Worthiness:  w,
		}
	case mem >= scoreThreshold && mem >= cal+scoreMargin:
		return Decision{
			Destination: Memory,
			Confidence:  clamp01(mem),
			Reasoning:   fmt.Sprintf("personal facts outweigh scheduling signals (%.2f vs %.2f)", mem, cal),
			Worthiness:  w,
		}
	case cal >= scoreThreshold && mem >= scoreThreshold:
		// Close scores: memory wins the tie unless the utterance names
		// an explicit day or week offset.
		if explicitOffsetRe.MatchString(clean) {
			return Decision{
				Destination: Calendar,
				Confidence:  clamp01(cal),
				Reasoning:   "tie broken by an explicit day offset",
				Worthiness:  w,
			}
		}
		return Decision{
			Destination: Memory,
			Confidence:  clamp01(mem),
			Reasoning:   "tie between destinations resolved to memory",
			Worthiness:  w,
		}
	default:
		return Decision{
			Destination: Neither,
			Confidence:  clamp01(1 - max(cal, mem)),
			Reasoning:   fmt.Sprintf("neither destination scored enough (%.2f calendar, %.2f memory)", cal, mem),
			Worthiness:  w,
		}
	}
}

func calendarScore(s string) float64 {
	score := 0.0
	if temporalRe.MatchString(s) {
		score += 0.4
	}
	if schedulingIndicatorRe.MatchString(s) {
		score += 0.3
	}
	if eventTypeRe.MatchString(s) {
		score += 0.3
	}
	if haveEventRe.MatchString(s) {
		score += 0.2
	}
	if goingToRe.MatchString(s) {
		score += 0.4
	}
	if interrogativRe.MatchString(s) {
		score -= 0.5
	}
	return score
}

func memoryScore(s string) float64 {
	score := 0.0
	temporal := temporalRe.MatchString(s)

	if personalInfoRe.MatchString(s) {
		score += 0.8
	}
	if firstPersonRe.MatchString(s) && !temporal {
		score += 0.3
	}
	if preferenceRe.MatchString(s) && !temporal {
		score += 0.4
	}
	if namedRelationRe.MatchString(s) {
		score += 0.4
	}
	if possessionRe.MatchString(s) {
		score -= 0.2
	}
	if birthdayRe.MatchString(s) {
		score += 0.5
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
