package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiProvider_GenerateAndUsage(t *testing.T) {
	var got geminiGenerateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "fields=orders.count"}}}},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     42,
				"candidatesTokenCount": 7,
			},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "gemini-1.5-flash")
	text, usage, err := p.Generate(context.Background(), "show me orders", MergeParameters(nil))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "fields=orders.count" {
		t.Fatalf("unexpected text: %q", text)
	}
	if usage.InputTokens != 42 || usage.OutputTokens != 7 {
		t.Fatalf("unexpected usage: %+v", usage)
	}

	if got.GenerationConfig.Temperature == nil || *got.GenerationConfig.Temperature != 0.2 {
		t.Fatalf("temperature not forwarded: %+v", got.GenerationConfig)
	}
	if got.GenerationConfig.MaxOutputTokens == nil || *got.GenerationConfig.MaxOutputTokens != 500 {
		t.Fatalf("max tokens not forwarded: %+v", got.GenerationConfig)
	}
	if len(got.Contents) != 1 || got.Contents[0].Parts[0].Text != "show me orders" {
		t.Fatalf("prompt not forwarded: %+v", got.Contents)
	}
}

func TestGeminiProvider_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "API key not valid"},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "bad-key", "")
	_, _, err := p.Generate(context.Background(), "prompt", MergeParameters(nil))
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if ge.Message != "API key not valid" {
		t.Fatalf("unexpected message: %q", ge.Message)
	}
}

func TestGeminiProvider_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "")
	_, _, err := p.Generate(context.Background(), "prompt", MergeParameters(nil))
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGeminiProvider_RequiresKey(t *testing.T) {
	p := NewGeminiProvider("", "", "")
	if _, _, err := p.Generate(context.Background(), "prompt", nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}
