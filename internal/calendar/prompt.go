package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/scribe/internal/temporal"
)

const gatePromptTemplate = `You are a scheduling intent detector. Answer with exactly one word, YES or NO.

Does the following message mention a concrete future event the author wants on a calendar? General plans without a date, past events, and questions are NO.

Message: %q`

const parsePromptTemplate = `You are an event extraction engine. Today is %s. Your output must be ONLY a single valid JSON object, no prose, no markdown.

Schema:
{"events":[{"title":"short event name","daysFromToday":0,"confidence":0.0,"reasoning":"one sentence"}]}

Rules:
- daysFromToday counts forward from today; today is 0, tomorrow is 1.
- title is 1-4 words, no dates, no articles.
- confidence is your certainty in [0,1] that this is a real scheduled event.
- If the message contains no future event, output {"events":[]} with the literal string NO_EVENTS as the only title.`

// BuildGatePrompt constructs the yes/no scheduling-intent prompt.
func BuildGatePrompt(text string) string {
	return fmt.Sprintf(gatePromptTemplate, text)
}

// BuildParsePrompt constructs the extraction prompt. Recent events are
// included so the model can avoid re-extracting what is already
// scheduled.
func BuildParsePrompt(text string, ref time.Time, recent []Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, parsePromptTemplate, ref.Format("Monday, January 2, 2006"))

	if len(recent) > 0 {
		sb.WriteString("\n\nAlready scheduled (do not repeat):")
		for _, e := range recent {
			fmt.Fprintf(&sb, "\n- %s (%s)", e.Title, temporal.FormatRelative(e.Days))
		}
	}

	fmt.Fprintf(&sb, "\n\nMessage: %q", text)
	return sb.String()
}
