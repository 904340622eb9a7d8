package calendar

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const assistedTimeout = 10 * time.Second

// minimum model confidence for an event to survive filtering
const minEventConfidence = 0.3

// Chatter is the interface for single-prompt text generation.
type Chatter interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Assisted extracts events by asking a language model. The intent
// gate and the event parse run concurrently; a negative gate discards
// whatever the parse produced.
type Assisted struct {
	client  Chatter
	model   string
	maxDays int
}

// NewAssisted creates an extractor using the given client and model name.
func NewAssisted(client Chatter, model string, maxDays int) *Assisted {
	return &Assisted{client: client, model: model, maxDays: maxDays}
}

// parsedEvent mirrors one entry of the model's JSON output.
type parsedEvent struct {
	Title         string  `json:"title"`
	DaysFromToday int     `json:"daysFromToday"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

type parsedEvents struct {
	Events []parsedEvent `json:"events"`
}

// Extract asks the model for events in the text. On any failure
// (timeout, malformed JSON, negative gate) it returns nil so the
// caller can fall back to the deterministic rules.
func (a *Assisted) Extract(ctx context.Context, text string, ref time.Time, recent []Event) []Event {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, assistedTimeout)
	defer cancel()

	var gateRaw, parseRaw string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gateRaw, err = a.client.Generate(gctx, a.model, BuildGatePrompt(text))
		return err
	})
	g.Go(func() error {
		var err error
		parseRaw, err = a.client.Generate(gctx, a.model, BuildParsePrompt(text, ref, recent))
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Warn("assisted extraction failed", "error", err)
		return nil
	}

	if !strings.Contains(strings.ToUpper(gateRaw), "YES") {
		return nil
	}

	return a.filter(parseRaw)
}

// filter decodes the raw model output and keeps only plausible events.
func (a *Assisted) filter(raw string) []Event {
	body := StripCodeFence(raw)
	if strings.Contains(body, "NO_EVENTS") && !strings.Contains(body, `"events"`) {
		return nil
	}

	var parsed parsedEvents
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		parsed.Events = salvage(body)
		if parsed.Events == nil {
			slog.Warn("failed to unmarshal events from model response", "error", err, "response", raw)
			return nil
		}
	}

	var events []Event
	seen := map[string]struct{}{}
	for _, p := range parsed.Events {
		title := strings.TrimSpace(p.Title)
		if title == "" || strings.EqualFold(title, "NO_EVENTS") {
			continue
		}
		if p.DaysFromToday < 0 || p.DaysFromToday > a.maxDays {
			continue
		}
		if p.Confidence < minEventConfidence {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		events = append(events, Event{
			Title:      title,
			Days:       p.DaysFromToday,
			Color:      ColorFor(title),
			Confidence: p.Confidence,
			Source:     SourceAssisted,
		})
	}
	return events
}

var salvageRe = regexp.MustCompile(`"title"\s*:\s*"([^"]+)"[^{}]*?"daysFromToday"\s*:\s*(-?\d+)(?:[^{}]*?"confidence"\s*:\s*([0-9.]+))?`)

// salvage pulls event fields out of output that is JSON-shaped but
// not valid JSON, such as a truncated array or trailing commentary.
func salvage(body string) []parsedEvent {
	var events []parsedEvent
	for _, m := range salvageRe.FindAllStringSubmatch(body, -1) {
		days, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		conf := 1.0
		if m[3] != "" {
			if f, err := strconv.ParseFloat(m[3], 64); err == nil {
				conf = f
			}
		}
		events = append(events, parsedEvent{Title: m[1], DaysFromToday: days, Confidence: conf})
	}
	return events
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripCodeFence unwraps a markdown code fence if the model added one.
func StripCodeFence(s string) string {
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}
