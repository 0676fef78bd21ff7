package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != defaultAnthropicModel {
			t.Errorf("Expected default model, got %s", req.Model)
		}
		if req.System != "curator" {
			t.Errorf("Expected system prompt, got %q", req.System)
		}
		if !strings.HasSuffix(req.Messages[0].Content, jsonInstruction) {
			t.Error("Expected JSON instruction appended to prompt")
		}

		resp := anthropicResponse{
			ID:    "msg_1",
			Type:  "message",
			Role:  "assistant",
			Model: defaultAnthropicModel,
			Content: []anthropicContent{
				{Type: "text", Text: `{"variants": `},
				{Type: "text", Text: `["c.530C>T"]}`},
			},
			Usage: anthropicUsage{InputTokens: 40, OutputTokens: 10},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL + "/", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		System: "curator",
		Prompt: "List variants",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"variants": ["c.530C>T"]}` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 50 {
		t.Errorf("Expected 50 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens too large"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "max_tokens too large") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestAnthropicProvider_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "msg_1", "content": []}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "bad-key", BaseURL: server.URL, Timeout: 5})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be unavailable with a rejected key")
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
