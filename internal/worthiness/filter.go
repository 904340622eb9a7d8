// Package worthiness classifies an utterance as a question, a chat
// fragment, or durable personal information, producing a scored
// verdict on whether it deserves long-term storage.
package worthiness

import (
	"regexp"
	"strings"
)

// Score thresholds for the value-scoring stage.
const (
	moderateThreshold = 0.4
	highThreshold     = 0.7
)

// Result is the outcome of assessing one utterance. Callers branch on
// Worthy and Score; Reason is a human-readable explanation only.
type Result struct {
	Worthy   bool
	Reason   string
	Score    float64
	Question bool // true when the utterance was rejected as a question
}

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(when|what|where|who|how|why|which|can|could|would|will|should|do|does|did|is|are|was|were|have|has|had)\s+`),
	regexp.MustCompile(`(?i)\b(tell me|remind me|show me|let me know|do you know|do you remember|can you|could you|would you|will you)\b`),
	regexp.MustCompile(`(?i)\b(what is|what's|when is|when's|where is|where's|who is|who's|how is|how's)\b`),
	regexp.MustCompile(`(?i)\b(what was|what were|when was|when were|where was|where were)\b`),
	regexp.MustCompile(`\?`),
	regexp.MustCompile(`(?i)\b(check|verify|confirm|look up|find out)\b`),
}

var fragmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(yes|no|ok|okay|sure|fine|thanks|thank you|please|hello|hi|bye|goodbye)\s*$`),
	regexp.MustCompile(`(?i)^\s*(i see|i understand|got it|alright|right|yeah|yep|nope|hmm|uh|um|well)\s*$`),
	regexp.MustCompile(`(?i)^\s*(add|remove|delete|update|change|set|clear|reset|stop|start|continue)\s+`),
	regexp.MustCompile(`(?i)\b(i feel|i'm feeling|i'm sad|i'm happy|i'm tired|i'm confused)\b`),
	regexp.MustCompile(`(?i)\b(error|bug|issue|problem|system|database|server|code|file|folder)\b`),
	regexp.MustCompile(`^.{1,5}$`),
	regexp.MustCompile(`^\s*\d+\s*$`),
	regexp.MustCompile(`^\s*[^a-zA-Z]*\s*$`),
}

var valuablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(my name is|i am|i'm|call me)\s+[a-zA-Z]+`),
	regexp.MustCompile(`(?i)\b(my \w+ is|my \w+'s name is|i have a|i live with)\s+[a-zA-Z]+`),
	regexp.MustCompile(`(?i)\b(my birthday|anniversary|graduation|wedding)\b`),
	regexp.MustCompile(`(?i)\b(i love|i like|i enjoy|i prefer|my favorite|i hate|i dislike)\s+`),
	regexp.MustCompile(`(?i)\b(i want to|i'm learning|i'm studying|my goal|i plan to|i hope to)\s+`),
	regexp.MustCompile(`(?i)\b(i live in|i work at|i'm from|my job|my career)\s+`),
	regexp.MustCompile(`(?i)\b(i have|i suffer from|i'm allergic to|my doctor|my medication)\s+`),
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}`),
	regexp.MustCompile(`(?i)\b(i am \d+|i'm \d+|i was born|i graduated|i started|i moved)\b`),
}

var noiseWords = map[string]struct{}{
	"again": {}, "still": {}, "just": {}, "maybe": {}, "perhaps": {},
	"probably": {}, "actually": {}, "basically": {}, "literally": {},
	"obviously": {}, "clearly": {}, "apparently": {}, "anyway": {},
	"whatever": {}, "somehow": {}, "somewhere": {}, "something": {},
	"anything": {},
}

var (
	nonAlnumRe     = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	firstPersonRe  = regexp.MustCompile(`\b(i|my|me|mine|myself)\b`)
	properNounRe   = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	dateInfoRe     = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\b(birthday|anniversary|graduation|born)\b`)
	nameInfoRe     = regexp.MustCompile(`(?i)\b(my name|i'm|i am|call me|named|known as)\s+[A-Za-z]+|\b(my \w+('?s)? name is|my \w+ is called|my \w+ is named)\s+[A-Za-z]+`)
	locationInfoRe = regexp.MustCompile(`\b(?i:i live|i'm from|i work|my address|my home|my office)\b|\bin [A-Z][a-z]+`)
	relationRe     = regexp.MustCompile(`(?i)\b(my wife|my husband|my partner|my boyfriend|my girlfriend|my family|my parents|my children|my kids|my mom|my dad|my mother|my father|my sister|my brother)\b|\bmy \w+('?s)? (name is|is named|is called)\b`)
	preferenceRe   = regexp.MustCompile(`(?i)\b(i love|i like|i enjoy|i prefer|my favorite|i hate|i dislike|i don't like)\s+`)
	goalRe         = regexp.MustCompile(`(?i)\b(i want to|i'm learning|i'm studying|my goal|i plan to|i hope to|i'm trying to)\s+`)
	factualRe      = regexp.MustCompile(`(?i)\b(i have|i am|i work as|i studied|i graduated|my job|my career|my education)\b`)
	selfStateRe    = regexp.MustCompile(`(?i)\b(i am|i have|my \w+ is|i live|i work|i was born)\b`)
)

// Assess runs the worthiness pipeline: question gate, fragment gate,
// minimum-quality gate, then value scoring. It is total over any
// input and never returns an error. The result must be computed once
// per utterance and reused by every downstream consumer.
func Assess(text string) Result {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return Result{Worthy: false, Reason: "empty input", Score: 0.0}
	}

	if matchesAny(questionPatterns, clean) {
		return Result{Worthy: false, Reason: "question or information request", Score: 0.1, Question: true}
	}

	if isChatFragment(clean) {
		return Result{Worthy: false, Reason: "chat fragment or filler", Score: 0.1}
	}

	if !hasMinimumQuality(clean) {
		return Result{Worthy: false, Reason: "insufficient quality or context", Score: 0.2}
	}

	score := valueScore(clean)
	switch {
	case score >= highThreshold:
		return Result{Worthy: true, Reason: "high-value personal information", Score: score}
	case score >= moderateThreshold:
		return Result{Worthy: true, Reason: "moderate-value information", Score: score}
	default:
		return Result{Worthy: false, Reason: "low-value information", Score: score}
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func isChatFragment(s string) bool {
	if matchesAny(fragmentPatterns, s) {
		return true
	}

	words := strings.Fields(strings.ToLower(s))
	if len(words) == 0 {
		return false
	}
	noise := 0
	for _, w := range words {
		if _, ok := noiseWords[w]; ok {
			noise++
		}
	}
	return float64(noise)/float64(len(words)) > 0.3
}

func hasMinimumQuality(s string) bool {
	meaningful := strings.TrimSpace(nonAlnumRe.ReplaceAllString(s, ""))
	if len(meaningful) < 10 {
		return false
	}
	if len(strings.Fields(meaningful)) < 2 {
		return false
	}
	// Needs a first-person marker or a capitalized proper-noun-like token.
	return firstPersonRe.MatchString(strings.ToLower(s)) || properNounRe.MatchString(s)
}

func valueScore(s string) float64 {
	score := 0.0

	for _, p := range valuablePatterns {
		if p.MatchString(s) {
			score += 0.3
		}
	}

	lower := strings.ToLower(s)
	if dateInfoRe.MatchString(lower) {
		score += 0.2
	}
	if nameInfoRe.MatchString(lower) {
		score += 0.2
	}
	if locationInfoRe.MatchString(s) {
		score += 0.15
	}
	if relationRe.MatchString(lower) {
		score += 0.15
	}
	if preferenceRe.MatchString(lower) {
		score += 0.1
	}
	if goalRe.MatchString(lower) {
		score += 0.1
	}
	if factualRe.MatchString(lower) {
		score += 0.1
	}

	// Residual interrogative markers penalize heavily.
	if strings.Contains(lower, "?") || strings.HasPrefix(lower, "when ") ||
		strings.HasPrefix(lower, "what ") || strings.HasPrefix(lower, "where ") {
		score -= 0.3
	}

	if selfStateRe.MatchString(lower) {
		score += 0.2
	}

	return clamp01(score)
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
