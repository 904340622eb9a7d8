package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/scribe/internal/calendar"
	"github.com/kalambet/scribe/internal/pipeline"
	"github.com/kalambet/scribe/internal/storage"
)

const testToken = "test-token-12345"

func setupHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	processor := pipeline.NewProcessor(store, nil, calendar.NewDeterministic(365))

	handler := NewHandler(Deps{
		Processor: processor,
		Store:     store,
		Token:     token,
	})
	return handler, store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rr.Body.String())
	}
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/analyze", `{"text":"hi"}`, "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_RejectsWrongToken(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/v1/memories", "", "wrong-token")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error.Type != "authentication_error" {
		t.Errorf("error type = %q, want %q", resp.Error.Type, "authentication_error")
	}
}

func TestAnalyze_CalendarInput(t *testing.T) {
	h, store := setupHandler(t, testToken)

	body := `{"text":"I have a wedding in 2 weeks"}`
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/analyze", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Destination != "calendar" {
		t.Fatalf("destination = %q, want %q", resp.Destination, "calendar")
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(resp.Events))
	}
	if resp.Events[0].Title != "Wedding" {
		t.Errorf("title = %q, want %q", resp.Events[0].Title, "Wedding")
	}
	if resp.Assisted {
		t.Error("assisted = true, want false without a model client")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	stored, err := store.ListUpcomingEvents(today, 10)
	if err != nil {
		t.Fatalf("ListUpcomingEvents failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored events = %d, want 1", len(stored))
	}
}

func TestAnalyze_MemoryInput(t *testing.T) {
	h, store := setupHandler(t, testToken)

	body := `{"text":"My dad's name is Paul"}`
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/analyze", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Destination != "memory" {
		t.Fatalf("destination = %q, want %q", resp.Destination, "memory")
	}
	if resp.Memory == nil {
		t.Fatal("memory is nil, want a stored record")
	}
	if resp.Memory.Category != "Family" {
		t.Errorf("category = %q, want %q", resp.Memory.Category, "Family")
	}

	memories, err := store.ListMemories("", 10)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("stored memories = %d, want 1", len(memories))
	}
}

func TestAnalyze_MissingText(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/analyze", `{}`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/analyze", `{not json`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestReconcile_RepairsWrongSentinel(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	body := `{"reply":"Sounds fun! Calendar: None...","utterance":"I have a wedding in 2 weeks"}`
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/reconcile", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(resp["reply"], "Calendar: 14 days from today Wedding.!.") {
		t.Errorf("reply = %q, want synthesized directive", resp["reply"])
	}
	if strings.Contains(resp["reply"], "Calendar: None") {
		t.Errorf("reply = %q, sentinel should be replaced", resp["reply"])
	}
}

func TestReconcile_MissingReply(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/v1/reconcile", `{"utterance":"hi"}`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListMemories_FiltersByCategory(t *testing.T) {
	h, store := setupHandler(t, testToken)

	seed := []storage.Memory{
		{ID: "m1", Category: "Family", Content: "my father name is paul", Normalized: "my father name is paul"},
		{ID: "m2", Category: "Preferences", Content: "i love hiking", Normalized: "i love hiking"},
	}
	for _, m := range seed {
		if err := store.SaveMemory(m); err != nil {
			t.Fatalf("SaveMemory(%s) failed: %v", m.ID, err)
		}
	}

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/v1/memories?category=Family", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []MemoryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("memories = %d, want 1", len(resp))
	}
	if resp[0].ID != "m1" {
		t.Errorf("id = %q, want %q", resp[0].ID, "m1")
	}
}

func TestListCategories(t *testing.T) {
	h, store := setupHandler(t, testToken)

	seed := []storage.Memory{
		{ID: "m1", Category: "Family", Content: "a", Normalized: "a"},
		{ID: "m2", Category: "Family", Content: "b", Normalized: "b"},
		{ID: "m3", Category: "Preferences", Content: "c", Normalized: "c"},
	}
	for _, m := range seed {
		if err := store.SaveMemory(m); err != nil {
			t.Fatalf("SaveMemory(%s) failed: %v", m.ID, err)
		}
	}

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/v1/memories/categories", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []CategoryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("categories = %d, want 2", len(resp))
	}
	if resp[0].Category != "Family" || resp[0].Count != 2 {
		t.Errorf("first category = %+v, want Family with count 2", resp[0])
	}
}

func TestDeleteMemory(t *testing.T) {
	h, store := setupHandler(t, testToken)

	m := storage.Memory{ID: "m1", Category: "Family", Content: "a", Normalized: "a"}
	if err := store.SaveMemory(m); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	rr := httptest.NewRecorder()
	req := authReq(http.MethodDelete, "/v1/memories/m1", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	memories, err := store.ListMemories("", 10)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(memories) != 0 {
		t.Fatalf("active memories = %d, want 0", len(memories))
	}
}

func TestDeleteMemory_NotFound(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodDelete, "/v1/memories/missing", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListEvents(t *testing.T) {
	h, store := setupHandler(t, testToken)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seed := []storage.Event{
		{ID: "e1", Title: "Wedding", StartDate: today.AddDate(0, 0, 14), Color: "#f783ac"},
		{ID: "e2", Title: "Dentist", StartDate: today.AddDate(0, 0, 3), Color: "#69db7c"},
	}
	for _, e := range seed {
		if err := store.SaveEvent(e); err != nil {
			t.Fatalf("SaveEvent(%s) failed: %v", e.ID, err)
		}
	}

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/v1/events", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []EventResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("events = %d, want 2", len(resp))
	}
	if resp[0].Title != "Dentist" {
		t.Errorf("first event = %q, want soonest first", resp[0].Title)
	}
}

func TestListEvents_LimitCapped(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/v1/events?limit=999999", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}
