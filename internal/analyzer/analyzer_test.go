package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

func TestAnalyzeParsesModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, _ := json.Marshal(model.DocumentMetadata{
			Title: "Linear Algebra Midterm", Platform: "CourseHero", Subject: "Mathematics", Summary: "Midterm solutions.",
		})
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": string(meta)}}},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewGemini("test-key", "gemini-2.5-flash")
	g.endpoint = srv.URL
	g.client = srv.Client()

	meta, err := g.Analyze(context.Background(), "https://coursehero.com/doc/1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if meta.Title != "Linear Algebra Midterm" || meta.Platform != "CourseHero" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestAnalyzeFailuresClassifiedExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini("test-key", "gemini-2.5-flash")
	g.endpoint = srv.URL
	g.client = srv.Client()

	if _, err := g.Analyze(context.Background(), "https://coursehero.com/doc/1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnalyzeOrFallback(t *testing.T) {
	// No analyzer configured at all.
	meta := AnalyzeOrFallback(context.Background(), nil, "https://coursehero.com/doc/1")
	if meta.Title != "Document Analysis Unavailable" {
		t.Fatalf("fallback meta = %+v", meta)
	}

	// Analyzer without a key fails internally; caller still gets the fallback.
	meta = AnalyzeOrFallback(context.Background(), NewGemini("", "gemini-2.5-flash"), "https://coursehero.com/doc/1")
	if meta.Platform != "Unknown Platform" || meta.Summary != "We will manually verify this link." {
		t.Fatalf("fallback meta = %+v", meta)
	}
}
