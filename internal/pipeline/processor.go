// Package pipeline orchestrates the analysis flow: route the
// utterance, extract events or classify a memory, gate duplicates,
// and persist what survives.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/scribe/internal/calendar"
	"github.com/kalambet/scribe/internal/dedupe"
	"github.com/kalambet/scribe/internal/memory"
	"github.com/kalambet/scribe/internal/reply"
	"github.com/kalambet/scribe/internal/router"
	"github.com/kalambet/scribe/internal/storage"
)

// recentEventContext caps how many stored events feed the assisted prompt.
const recentEventContext = 5

// duplicateScanLimit caps how many stored memories are compared
// against a new candidate.
const duplicateScanLimit = 200

// Metadata captures diagnostic information about one analysis run.
type Metadata struct {
	AssistedUsed bool
	DuplicateOf  string // id of the memory refreshed instead of inserted
	DurationMs   int64
}

// Result is the outcome of analyzing one utterance.
type Result struct {
	Decision router.Decision
	Events   []storage.Event
	Memory   *storage.Memory
	Analysis memory.Analysis
	Meta     Metadata
}

// Processor runs the analysis pipeline against a record store.
// The assisted extractor is optional; without it (or when it fails)
// extraction falls back to the deterministic rules.
type Processor struct {
	store         *storage.Store
	assisted      *calendar.Assisted
	deterministic *calendar.Deterministic
	reconciler    *reply.Reconciler
	now           func() time.Time
}

// NewProcessor wires a Processor. Pass nil for assisted to run
// rules-only.
func NewProcessor(store *storage.Store, assisted *calendar.Assisted, deterministic *calendar.Deterministic) *Processor {
	return &Processor{
		store:         store,
		assisted:      assisted,
		deterministic: deterministic,
		reconciler:    reply.NewReconciler(deterministic),
		now:           time.Now,
	}
}

// Analyze routes the utterance and persists the resulting records.
// Extraction failures degrade to the deterministic path; only storage
// failures surface as errors.
func (p *Processor) Analyze(ctx context.Context, text string) (Result, error) {
	start := p.now()
	res := Result{Decision: router.Route(text)}
	defer func() {
		res.Meta.DurationMs = p.now().Sub(start).Milliseconds()
	}()

	var err error
	switch res.Decision.Destination {
	case router.Calendar:
		err = p.analyzeCalendar(ctx, text, &res)
	case router.Memory:
		err = p.analyzeMemory(text, &res)
	}
	if err != nil {
		return res, err
	}

	slog.Debug("analysis complete",
		"destination", res.Decision.Destination,
		"events", len(res.Events),
		"memory_stored", res.Memory != nil,
		"assisted", res.Meta.AssistedUsed,
	)
	return res, nil
}

// Reconcile repairs an assistant reply against the utterance it
// answers, using today as the reference date.
func (p *Processor) Reconcile(replyText, utterance string) string {
	return p.reconciler.Reconcile(replyText, utterance, p.today())
}

func (p *Processor) today() time.Time {
	n := p.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (p *Processor) analyzeCalendar(ctx context.Context, text string, res *Result) error {
	today := p.today()

	var events []calendar.Event
	if p.assisted != nil {
		events = p.assisted.Extract(ctx, text, today, p.recentEvents(today))
		res.Meta.AssistedUsed = len(events) > 0
	}
	if len(events) == 0 {
		events = p.deterministic.Extract(text, today)
	}

	for _, e := range events {
		startDate := today.AddDate(0, 0, e.Days)

		if _, err := p.store.FindEvent(e.Title, startDate); err == nil {
			continue
		} else if err != storage.ErrNotFound {
			return fmt.Errorf("checking existing event: %w", err)
		}

		rec := storage.Event{
			ID:          uuid.NewString(),
			Title:       e.Title,
			StartDate:   startDate,
			Color:       e.Color,
			Description: fmt.Sprintf("Created from %q (%s extraction, confidence %.2f)", text, e.Source, e.Confidence),
		}
		if err := p.store.SaveEvent(rec); err != nil {
			return fmt.Errorf("saving event: %w", err)
		}
		res.Events = append(res.Events, rec)
	}
	return nil
}

// recentEvents converts upcoming stored events into prompt context.
func (p *Processor) recentEvents(today time.Time) []calendar.Event {
	stored, err := p.store.ListUpcomingEvents(today, recentEventContext)
	if err != nil {
		slog.Warn("listing upcoming events for context", "error", err)
		return nil
	}
	var out []calendar.Event
	for _, e := range stored {
		out = append(out, calendar.Event{
			Title: e.Title,
			Days:  int(e.StartDate.Sub(today).Hours() / 24),
			Color: e.Color,
		})
	}
	return out
}

func (p *Processor) analyzeMemory(text string, res *Result) error {
	cats, err := p.store.Categories()
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Category
	}

	res.Analysis = memory.Classify(text, res.Decision.Worthiness, names)
	if !res.Analysis.ShouldStore() {
		return nil
	}

	// The duplicate scan stays within the resolved category: the same
	// normalized sentence filed under a different category is a new fact.
	existing, err := p.store.ListMemories(res.Analysis.Category(), duplicateScanLimit)
	if err != nil {
		return fmt.Errorf("listing memories: %w", err)
	}
	contents := make([]string, len(existing))
	for i, m := range existing {
		contents[i] = m.Content
	}

	if idx, verdict := dedupe.FindDuplicate(res.Analysis.MemoryToStore, contents); idx >= 0 {
		dup := existing[idx]
		if err := p.store.TouchMemory(dup.ID); err != nil {
			return fmt.Errorf("refreshing duplicate memory: %w", err)
		}
		res.Meta.DuplicateOf = dup.ID
		res.Memory = &dup
		slog.Debug("duplicate memory refreshed", "id", dup.ID, "method", verdict.Method)
		return nil
	}

	rec := storage.Memory{
		ID:         uuid.NewString(),
		Category:   res.Analysis.Category(),
		Content:    res.Analysis.MemoryToStore,
		Normalized: dedupe.Normalize(res.Analysis.MemoryToStore),
		Active:     true,
	}
	if err := p.store.SaveMemory(rec); err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}
	res.Memory = &rec
	return nil
}
