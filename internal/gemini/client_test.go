package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// candidateJSON builds a generateContent response carrying one text part.
func candidateJSON(text string) []byte {
	resp := generateResponse{}
	resp.Candidates = []struct {
		Content Content `json:"content"`
	}{
		{Content: Content{Role: "model", Parts: []Part{{Text: text}}}},
	}
	b, _ := json.Marshal(resp)
	return b
}

func TestGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write(candidateJSON(`{"events":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	out, err := c.Generate(context.Background(), "gemini-2.0-flash", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if out != `{"events":[]}` {
		t.Errorf("Generate() = %q", out)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.GenerationConfig == nil || gotBody.GenerationConfig.Temperature != 0 {
		t.Errorf("expected zero-temperature generation config, got %+v", gotBody.GenerationConfig)
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "bad-key")
	_, err := c.Generate(context.Background(), "gemini-2.0-flash", "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error = %v, want API message included", err)
	}
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	_, err := c.Generate(context.Background(), "gemini-2.0-flash", "hello")
	if err == nil {
		t.Fatal("expected error on empty candidates")
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("", "k")
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
