package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/varlens/internal/metrics"
	"github.com/ppiankov/varlens/internal/model"
)

// Entity scopes
const (
	ScopeVariant    = "variant"
	ScopeIndividual = "individual"
	ScopePaper      = "paper"
)

// EntityKey names one derived field of one entity. Only the fields of its scope are set.
type EntityKey struct {
	Scope      string
	Variant    model.VariantKey
	Individual string
	Field      string
}

// VariantField keys a field derived from a variant identity
func VariantField(v model.VariantKey, field string) EntityKey {
	return EntityKey{Scope: ScopeVariant, Variant: v, Field: field}
}

// IndividualField keys a field derived from an individual
func IndividualField(individual, field string) EntityKey {
	return EntityKey{Scope: ScopeIndividual, Individual: individual, Field: field}
}

// PaperField keys a field derived from the paper as a whole
func PaperField(field string) EntityKey {
	return EntityKey{Scope: ScopePaper, Field: field}
}

type entry[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// EntityCache memoizes derived fields for one paper run.
// The first caller for a key runs compute; every other caller, concurrent or later,
// waits on that same computation. Results, errors included, are kept until the cache is dropped.
type EntityCache[V any] struct {
	mu       sync.Mutex
	entries  map[EntityKey]*entry[V]
	recorder *metrics.Recorder
}

// NewEntityCache creates an empty cache; recorder may be nil
func NewEntityCache[V any](recorder *metrics.Recorder) *EntityCache[V] {
	return &EntityCache[V]{
		entries:  make(map[EntityKey]*entry[V]),
		recorder: recorder,
	}
}

// Get returns the value for key, computing it at most once.
// A waiter whose ctx ends returns ctx.Err() without affecting the pending computation.
func (c *EntityCache[V]) Get(ctx context.Context, key EntityKey, compute func(ctx context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.recorder.EntityLookup(key.Scope, true)

		select {
		case <-e.done:
			return e.value, e.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	e := &entry[V]{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()
	c.recorder.EntityLookup(key.Scope, false)

	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			var zero V
			e.value, e.err = zero, fmt.Errorf("compute %s %s: panic: %v", key.Scope, key.Field, r)
			panic(r)
		}
	}()
	e.value, e.err = compute(ctx)
	return e.value, e.err
}

// Len returns the number of registered keys, pending or done
func (c *EntityCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
