// Package llmtest provides a scripted inference service for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/varlens/internal/llm"
)

// Responder produces the answer for one call
type Responder func(params llm.Params) (llm.Answer, error)

// Fake is a scripted llm.Asker. Tags without a responder answer with an empty object.
type Fake struct {
	mu         sync.Mutex
	responders map[llm.PromptTag]Responder
	calls      map[llm.PromptTag][]llm.Params
}

// New creates an empty fake
func New() *Fake {
	return &Fake{
		responders: make(map[llm.PromptTag]Responder),
		calls:      make(map[llm.PromptTag][]llm.Params),
	}
}

// On registers a responder for tag
func (f *Fake) On(tag llm.PromptTag, r Responder) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[tag] = r
	return f
}

// Always answers every call for tag with the same answer
func (f *Fake) Always(tag llm.PromptTag, answer llm.Answer) *Fake {
	return f.On(tag, func(llm.Params) (llm.Answer, error) { return answer, nil })
}

// ByParam answers by looking up params[key] in answers; unknown values answer empty
func (f *Fake) ByParam(tag llm.PromptTag, key string, answers map[string]llm.Answer) *Fake {
	return f.On(tag, func(p llm.Params) (llm.Answer, error) {
		if a, ok := answers[fmt.Sprint(p[key])]; ok {
			return a, nil
		}
		return llm.Answer{}, nil
	})
}

// Fail makes every call for tag return err
func (f *Fake) Fail(tag llm.PromptTag, err error) *Fake {
	return f.On(tag, func(llm.Params) (llm.Answer, error) { return nil, err })
}

// Ask implements llm.Asker
func (f *Fake) Ask(ctx context.Context, tag llm.PromptTag, params llm.Params) (llm.Answer, error) {
	if _, err := llm.Lookup(tag); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[tag] = append(f.calls[tag], params)
	r := f.responders[tag]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil {
		return llm.Answer{}, nil
	}
	answer, err := r(params)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		answer = llm.Answer{}
	}
	return answer, nil
}

// Calls returns how many times tag was asked
func (f *Fake) Calls(tag llm.PromptTag) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[tag])
}

// Params returns the params of every call for tag, in arrival order
func (f *Fake) Params(tag llm.PromptTag) []llm.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Params(nil), f.calls[tag]...)
}

// Total returns the number of calls across all tags
func (f *Fake) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}
