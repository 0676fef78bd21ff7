package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/varlens/internal/cache"
	"github.com/ppiankov/varlens/internal/metrics"
	"github.com/ppiankov/varlens/internal/worker"
)

// Asker answers one structured query. An empty Answer means "no answer", not an error;
// a returned error is a provider failure.
type Asker interface {
	Ask(ctx context.Context, tag PromptTag, params Params) (Answer, error)
}

// Service implements Asker on top of a Provider
type Service struct {
	provider Provider
	model    string
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	recorder *metrics.Recorder
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithModel overrides the provider's configured model for every call
func WithModel(model string) ServiceOption {
	return func(s *Service) { s.model = model }
}

// WithCache stores raw responses keyed by provider, model and rendered prompt
func WithCache(c cache.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLimiter rate limits calls, keyed by provider name
func WithLimiter(l *worker.Limiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

// WithRecorder counts calls, failures and empty answers
func WithRecorder(r *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a new inference service
func NewService(provider Provider, opts ...ServiceOption) *Service {
	s := &Service{provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask renders the prompt for tag, calls the provider and extracts the JSON answer
func (s *Service) Ask(ctx context.Context, tag PromptTag, params Params) (Answer, error) {
	prompt, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	text, err := prompt.Render(params)
	if err != nil {
		return nil, err
	}

	key := ""
	if s.cache != nil {
		key = cache.CacheKey(s.provider.Name(), s.model, prompt.System, text)
		if raw, ok := s.cache.Get(key); ok {
			s.recorder.ResponseCacheHit()
			return ParseAnswer(string(raw)), nil
		}
	}

	if err := s.limiter.Wait(ctx, s.provider.Name()); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", tag, err)
	}

	s.recorder.InferenceCall(string(tag))
	resp, err := s.provider.Complete(ctx, CompletionRequest{
		System: prompt.System,
		Prompt: text,
		JSON:   true,
		Model:  s.model,
	})
	if err != nil {
		s.recorder.InferenceFailure(string(tag))
		return nil, fmt.Errorf("%s: %w", tag, err)
	}

	answer := ParseAnswer(resp.Text)
	if answer.Empty() {
		s.recorder.EmptyAnswer(string(tag))
		slog.Debug("inference returned no usable answer", "prompt", tag, "response", truncate(resp.Text, 200))
		return answer, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(key, []byte(resp.Text), s.cacheTTL); err != nil {
			slog.Warn("response cache write failed", "prompt", tag, "error", err)
		}
	}

	return answer, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Counter wraps an Asker and counts calls per tag, for the report of one run
type Counter struct {
	next   Asker
	mu     sync.Mutex
	counts map[string]int
}

// NewCounter wraps next
func NewCounter(next Asker) *Counter {
	return &Counter{next: next, counts: make(map[string]int)}
}

// Ask counts the call and forwards it
func (c *Counter) Ask(ctx context.Context, tag PromptTag, params Params) (Answer, error) {
	c.mu.Lock()
	c.counts[string(tag)]++
	c.mu.Unlock()
	return c.next.Ask(ctx, tag, params)
}

// Counts returns a copy of the per-tag counts
func (c *Counter) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of calls across all tags
func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}
