// Package api exposes the analysis pipeline over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/scribe/internal/pipeline"
	"github.com/kalambet/scribe/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Processor *pipeline.Processor
	Store     *storage.Store
	Token     string
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse reports what the pipeline decided and persisted.
type AnalyzeResponse struct {
	Destination string          `json:"destination"`
	Confidence  float64         `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
	Events      []EventResponse `json:"events"`
	Memory      *MemoryResponse `json:"memory,omitempty"`
	DuplicateOf string          `json:"duplicate_of,omitempty"`
	Assisted    bool            `json:"assisted"`
	DurationMs  int64           `json:"duration_ms"`
}

// ReconcileRequest is the body of POST /v1/reconcile.
type ReconcileRequest struct {
	Reply     string `json:"reply"`
	Utterance string `json:"utterance"`
}

// EventResponse is one stored calendar event.
type EventResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	StartDate   string `json:"start_date"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// MemoryResponse is one stored memory record.
type MemoryResponse struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CategoryResponse pairs a category name with its record count.
type CategoryResponse struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// NewHandler returns the HTTP handler: an open health check plus the
// token-protected v1 API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/analyze", handleAnalyze(deps))
		r.Post("/reconcile", handleReconcile(deps))
		r.Get("/memories", handleListMemories(deps))
		r.Get("/memories/categories", handleCategories(deps))
		r.Delete("/memories/{id}", handleDeleteMemory(deps))
		r.Get("/events", handleListEvents(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		res, err := deps.Processor.Analyze(r.Context(), req.Text)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "analysis failed: %v", err)
			return
		}

		out := AnalyzeResponse{
			Destination: string(res.Decision.Destination),
			Confidence:  res.Decision.Confidence,
			Reasoning:   res.Decision.Reasoning,
			Events:      []EventResponse{},
			DuplicateOf: res.Meta.DuplicateOf,
			Assisted:    res.Meta.AssistedUsed,
			DurationMs:  res.Meta.DurationMs,
		}
		for _, e := range res.Events {
			out.Events = append(out.Events, eventResponse(e))
		}
		if res.Memory != nil {
			m := memoryResponse(*res.Memory)
			out.Memory = &m
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleReconcile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ReconcileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Reply == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reply is required")
			return
		}

		repaired := deps.Processor.Reconcile(req.Reply, req.Utterance)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"reply": repaired})
	}
}

func handleListMemories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		limit := parseIntParam(r, "limit", 50, 200)

		memories, err := deps.Store.ListMemories(category, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list memories: %v", err)
			return
		}

		out := make([]MemoryResponse, len(memories))
		for i, m := range memories {
			out[i] = memoryResponse(m)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleCategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := deps.Store.Categories()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list categories: %v", err)
			return
		}

		out := make([]CategoryResponse, len(cats))
		for i, c := range cats {
			out[i] = CategoryResponse{Category: c.Category, Count: c.Count}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleDeleteMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteMemory(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "memory not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete memory: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleListEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)

		today := time.Now().UTC().Truncate(24 * time.Hour)
		events, err := deps.Store.ListUpcomingEvents(today, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list events: %v", err)
			return
		}

		out := make([]EventResponse, len(events))
		for i, e := range events {
			out[i] = eventResponse(e)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func eventResponse(e storage.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		StartDate:   e.StartDate.Format(time.DateOnly),
		Color:       e.Color,
		Description: e.Description,
	}
}

func memoryResponse(m storage.Memory) MemoryResponse {
	return MemoryResponse{
		ID:        m.ID,
		Category:  m.Category,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
