package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %v vs %v", v1, v2)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	s := openTestStore(t)

	m := Memory{
		ID:         uuid.NewString(),
		Category:   "Family",
		Content:    "My sister's name is Kateryna",
		Normalized: "my sister name is kateryna",
	}
	if err := s.SaveMemory(m); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	got, err := s.GetMemory(m.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got.Content != m.Content || got.Category != m.Category || got.Normalized != m.Normalized {
		t.Errorf("got %+v", got)
	}
	if !got.Active {
		t.Error("new memory not active")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestGetMemoryMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetMemory(uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMemory = %v, want ErrNotFound", err)
	}
}

func TestListMemoriesByCategory(t *testing.T) {
	s := openTestStore(t)

	for _, m := range []Memory{
		{ID: uuid.NewString(), Category: "Family", Content: "a", Normalized: "a"},
		{ID: uuid.NewString(), Category: "Family", Content: "b", Normalized: "b"},
		{ID: uuid.NewString(), Category: "Preferences", Content: "c", Normalized: "c"},
	} {
		if err := s.SaveMemory(m); err != nil {
			t.Fatalf("SaveMemory: %v", err)
		}
	}

	family, err := s.ListMemories("Family", 0)
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(family) != 2 {
		t.Errorf("got %d family memories, want 2", len(family))
	}

	all, err := s.ListMemories("", 0)
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d memories, want 3", len(all))
	}
}

func TestTouchMemoryRefreshesUpdatedAt(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().UTC().Add(-time.Hour)
	m := Memory{
		ID:        uuid.NewString(),
		Category:  "Family",
		Content:   "My dad's name is Paul",
		CreatedAt: old,
		UpdatedAt: old,
	}
	if err := s.SaveMemory(m); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	if err := s.TouchMemory(m.ID); err != nil {
		t.Fatalf("TouchMemory: %v", err)
	}

	got, err := s.GetMemory(m.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if !got.UpdatedAt.After(old) {
		t.Errorf("updated_at not refreshed: %v", got.UpdatedAt)
	}

	all, err := s.ListMemories("", 0)
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("touch grew the table: %d rows", len(all))
	}
}

func TestTouchMemoryMissing(t *testing.T) {
	s := openTestStore(t)
	if err := s.TouchMemory(uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchMemory = %v, want ErrNotFound", err)
	}
}

func TestCategories(t *testing.T) {
	s := openTestStore(t)

	for _, m := range []Memory{
		{ID: uuid.NewString(), Category: "Family", Content: "a"},
		{ID: uuid.NewString(), Category: "Family", Content: "b"},
		{ID: uuid.NewString(), Category: "Preferences", Content: "c"},
	} {
		if err := s.SaveMemory(m); err != nil {
			t.Fatalf("SaveMemory: %v", err)
		}
	}

	cats, err := s.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2: %+v", len(cats), cats)
	}
	if cats[0].Category != "Family" || cats[0].Count != 2 {
		t.Errorf("first = %+v, want Family with 2", cats[0])
	}
}

func TestDeleteMemory(t *testing.T) {
	s := openTestStore(t)

	m := Memory{ID: uuid.NewString(), Category: "Family", Content: "a"}
	if err := s.SaveMemory(m); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if err := s.DeleteMemory(m.ID); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}

	all, err := s.ListMemories("", 0)
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("deleted memory still listed: %+v", all)
	}

	// Row survives deactivated.
	got, err := s.GetMemory(m.ID)
	if err != nil {
		t.Fatalf("GetMemory after delete: %v", err)
	}
	if got.Active {
		t.Error("memory still active after delete")
	}

	if err := s.DeleteMemory(m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)

	today := time.Date(2025, time.August, 7, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: uuid.NewString(), Title: "Wedding", StartDate: today.AddDate(0, 0, 14), Color: "#f783ac"},
		{ID: uuid.NewString(), Title: "Deadline", StartDate: today.AddDate(0, 0, 5), Color: "#4dabf7"},
		{ID: uuid.NewString(), Title: "Past Checkup", StartDate: today.AddDate(0, 0, -3)},
	}
	for _, e := range events {
		if err := s.SaveEvent(e); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	upcoming, err := s.ListUpcomingEvents(today, 0)
	if err != nil {
		t.Fatalf("ListUpcomingEvents: %v", err)
	}
	if len(upcoming) != 2 {
		t.Fatalf("got %d upcoming events, want 2: %+v", len(upcoming), upcoming)
	}
	if upcoming[0].Title != "Deadline" || upcoming[1].Title != "Wedding" {
		t.Errorf("order = %q, %q; want soonest first", upcoming[0].Title, upcoming[1].Title)
	}
	if !upcoming[1].StartDate.Equal(today.AddDate(0, 0, 14)) {
		t.Errorf("StartDate = %v", upcoming[1].StartDate)
	}
}

func TestFindEvent(t *testing.T) {
	s := openTestStore(t)

	day := time.Date(2025, time.August, 21, 0, 0, 0, 0, time.UTC)
	e := Event{ID: uuid.NewString(), Title: "Wedding", StartDate: day}
	if err := s.SaveEvent(e); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}

	id, err := s.FindEvent("wedding", day)
	if err != nil {
		t.Fatalf("FindEvent: %v", err)
	}
	if id != e.ID {
		t.Errorf("id = %q, want %q", id, e.ID)
	}

	if _, err := s.FindEvent("wedding", day.AddDate(0, 0, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindEvent other day = %v, want ErrNotFound", err)
	}
}
