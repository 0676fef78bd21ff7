package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/varlens/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("openai", "gpt-4o-mini", "prompt")
	b := CacheKey("openai", "gpt-4o-mini", "prompt")
	if a != b {
		t.Error("expected identical parts to give identical keys")
	}
	if !strings.HasPrefix(a, "varlens:v1:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("expected part boundaries to matter")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss on empty cache")
	}
	if err := c.Set("k", []byte(`{"relevant": true}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok := c.Get("k")
	if !ok || string(v) != `{"relevant": true}` {
		t.Errorf("expected stored value, got %q, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 item, got %d", c.Len())
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("ollama", "llama3", "prompt")

	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok := c.Get(key)
	if !ok || string(v) != "payload" {
		t.Errorf("expected payload, got %q, %v", v, ok)
	}

	shard := key[len("varlens:v1:") : len("varlens:v1:")+2]
	entries, err := os.ReadDir(filepath.Join(dir, shard))
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one file in shard %s, got %v, %v", shard, entries, err)
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of missing key should succeed, got %v", err)
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set("varlens:v1:aa01", []byte("old"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("varlens:v1:aa01"); ok {
		t.Error("expected expired entry to miss")
	}

	path := c.path("varlens:v1:bb02")
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	_ = os.WriteFile(path, []byte("not json"), 0644)
	if _, ok := c.Get("varlens:v1:bb02"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected corrupt entry to be removed")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("varlens:v1:cc03", []byte("from disk"), 0)

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	v, ok := c.Get("varlens:v1:cc03")
	if !ok || string(v) != "from disk" {
		t.Fatalf("expected disk hit, got %q, %v", v, ok)
	}
	if _, ok := c.memory.Get("varlens:v1:cc03"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}

	if err := c.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, ok := c.Get("varlens:v1:cc03"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("expected memory cache without a dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("expected layered cache with a dir")
	}
}
