// Package cache holds the inference response cache and the per-paper entity cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/varlens/internal/model"
)

// Cache stores raw inference responses
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey hashes the parts that determine a response (provider, model, prompt)
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "varlens:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the response cache described by cfg, or nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
