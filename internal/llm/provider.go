package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw model output
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one inference call
type CompletionRequest struct {
	// System is the system instruction for the prompt
	System string

	// Prompt is the rendered user prompt
	Prompt string

	// JSON asks the provider to constrain output to a JSON object when it supports it
	JSON bool

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the raw model output
type CompletionResponse struct {
	// Text is the model output, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   60,
		MaxTokens: 2000,
	}
}

// Temperature used for every extraction call; extraction wants repeatable output
const temperature = 0

func resolveModel(req CompletionRequest, config Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if config.Model != "" {
		return config.Model
	}
	return fallback
}

func resolveMaxTokens(req CompletionRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 2000
}

// jsonInstruction is appended for providers without a native JSON mode
const jsonInstruction = "\n\nRespond with a single JSON object and nothing else."

func withJSONInstruction(req CompletionRequest) string {
	if req.JSON && !strings.Contains(req.Prompt, jsonInstruction) {
		return req.Prompt + jsonInstruction
	}
	return req.Prompt
}
