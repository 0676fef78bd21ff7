package cli

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/varlens/internal/model"
)

func TestParseSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":       slog.LevelInfo,
		"debug":  slog.LevelDebug,
		"WARN":   slog.LevelWarn,
		"error":  slog.LevelError,
		"-4":     slog.LevelDebug,
		"bogus":  slog.LevelInfo,
		" info ": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseSlogLevel(in, slog.LevelInfo); got != want {
			t.Errorf("parseSlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"pmid:123":               "pmid_123",
		"https://x.org/a b.html": "https___x.org_a_b.html",
		"":                       "paper",
		"EXOC2":                  "EXOC2",
		"../../etc/passwd":       "etc_passwd",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJobsFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.html", "notes.md", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	jobs, err := jobsFromDir(dir, "EXOC2")
	if err != nil {
		t.Fatalf("jobsFromDir failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d: %+v", len(jobs), jobs)
	}
	for _, j := range jobs {
		if j.Gene != "EXOC2" {
			t.Errorf("unexpected gene %q", j.Gene)
		}
	}

	if _, err := jobsFromDir(dir, ""); err == nil {
		t.Error("expected error without a gene")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "varlens", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &model.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	want := model.DefaultConfig()
	if cfg.Cache.MemoryTTL != want.Cache.MemoryTTL || cfg.HTTP.Timeout != want.HTTP.Timeout {
		t.Errorf("durations did not round-trip: %+v", cfg.Cache)
	}
	if cfg.LLM.Provider != want.LLM.Provider || cfg.Concurrency.Inference != want.Concurrency.Inference {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error overwriting an existing config")
	}
}

func TestNewEngine_ChecksProviderAvailability(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.BaseURL = server.URL
	cfg.Cache.Enabled = false

	eng, err := newEngine(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	if eng.resolver == nil || eng.loader == nil {
		t.Error("expected resolver and loader to be wired")
	}

	status.Store(http.StatusServiceUnavailable)
	_, err = newEngine(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "inference provider ollama is not available") {
		t.Errorf("expected availability error, got %v", err)
	}
}
