package reply

import (
	"strings"
	"testing"
	"time"

	"github.com/kalambet/scribe/internal/calendar"
)

// Thursday.
var ref = time.Date(2025, time.August, 7, 12, 0, 0, 0, time.UTC)

func newReconciler() *Reconciler {
	return NewReconciler(calendar.NewDeterministic(365))
}

func TestReconcile_CollapsesDuplicates(t *testing.T) {
	r := newReconciler()
	in := "Sounds good! Calendar: 14 days from today Wedding.!. I noted it. Calendar: 14 days from today wedding.!. Anything else?"

	got := r.Reconcile(in, "I have a wedding in 2 weeks", ref)

	if n := strings.Count(got, "days from today"); n != 1 {
		t.Fatalf("got %d directives, want 1: %q", n, got)
	}
	if !strings.Contains(got, "Sounds good!") || !strings.Contains(got, "Anything else?") {
		t.Errorf("surrounding prose lost: %q", got)
	}
	if !strings.Contains(got, "Calendar: 14 days from today Wedding.!.") {
		t.Errorf("first directive not kept: %q", got)
	}
}

func TestReconcile_KeepsDistinctDirectives(t *testing.T) {
	r := newReconciler()
	in := "Calendar: 14 days from today Wedding.!. Calendar: 5 days from today Deadline.!."

	got := r.Reconcile(in, "busy weeks ahead", ref)
	if n := strings.Count(got, "days from today"); n != 2 {
		t.Errorf("got %d directives, want 2: %q", n, got)
	}
}

func TestReconcile_RepairsWrongSentinel(t *testing.T) {
	r := newReconciler()
	got := r.Reconcile("Calendar: None.!.", "I have a wedding in 2 weeks", ref)

	if strings.Contains(got, "None") {
		t.Fatalf("sentinel survived: %q", got)
	}
	if !strings.Contains(got, "Calendar: 14 days from today Wedding.!.") {
		t.Errorf("synthesized directive missing: %q", got)
	}
	if !strings.Contains(got, "Wedding") || !strings.Contains(got, "in 14 days") {
		t.Errorf("acknowledgement missing: %q", got)
	}
}

func TestReconcile_SentinelStaysWithoutEvents(t *testing.T) {
	r := newReconciler()
	in := "Nothing to schedule. Calendar: None.!."

	got := r.Reconcile(in, "I love rainy mornings", ref)
	if !strings.Contains(got, "Calendar: None") {
		t.Errorf("sentinel removed without recovered events: %q", got)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	r := newReconciler()
	utterance := "I have a wedding in 2 weeks"
	in := "Calendar: None.!. Calendar: 14 days from today Wedding.!. Calendar: 14 days from today Wedding.!."

	once := r.Reconcile(in, utterance, ref)
	twice := r.Reconcile(once, utterance, ref)
	if once != twice {
		t.Errorf("not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestDirectives(t *testing.T) {
	in := "Calendar: 14 days from today Wedding.!. and Calendar: 5 days from today Team Dinner.!."
	got := Directives(in)
	if len(got) != 2 {
		t.Fatalf("Directives() = %+v, want 2", got)
	}
	if got[0].Title != "Wedding" || got[0].Days != 14 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Title != "Team Dinner" || got[1].Days != 5 {
		t.Errorf("second = %+v", got[1])
	}
	if got[1].Color != calendar.ColorFor("Team Dinner") {
		t.Errorf("color not assigned")
	}
}

func TestFormatDirective(t *testing.T) {
	if got := FormatDirective("Wedding", 14); got != "Calendar: 14 days from today Wedding.!." {
		t.Errorf("FormatDirective() = %q", got)
	}
}
