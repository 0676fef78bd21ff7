package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" {
			t.Errorf("Expected json format, got %q", req.Format)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "llama3.1:8b",
			Response: `{"patients": ["proband"]}`,
			Done:     true,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "List patients", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"patients": ["proband"]}` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed == 0 {
		t.Error("Expected estimated token count when the server reports none")
	}
}

func TestOllamaProvider_Complete_RequiresModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error without model")
	}
}

func TestOllamaProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}

	down, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1", Timeout: 1})
	if down.IsAvailable(context.Background()) {
		t.Error("Expected provider to be unavailable")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("Expected disabled provider, got %v, %v", p, err)
	}

	p, err = NewProvider(Config{Provider: "Ollama"})
	if err != nil || p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %v, %v", p, err)
	}

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("Expected anthropic provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "gemini"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
