package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/worker"
)

func testConfig(robots bool) model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:       5 * time.Second,
		UserAgent:     "varlens-test/1.0",
		MaxBodyBytes:  1 << 20,
		RespectRobots: robots,
	}
}

func noSleep(t *testing.T) {
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "varlens-test/1.0" {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig(false), nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if result.ContentType != "text/html" {
		t.Errorf("Unexpected content type: %s", result.ContentType)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig(false), nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_GivesUp(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig(false), nil).FetchWithRetry(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("Expected exhausted retries, got %v", err)
	}
	if attempts.Load() != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig(false), nil).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	cfg := testConfig(false)
	cfg.MaxBodyBytes = 10
	result, err := NewFetcher(cfg, nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(result.HTML) != 10 {
		t.Errorf("Expected body truncated to 10 bytes, got %d", len(result.HTML))
	}
}

func TestFetchWithRetry_Robots(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: varlens-test\nDisallow: /private/\nCrawl-delay: 2\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	limiter := worker.NewLimiter(0, 0)
	f := NewFetcher(testConfig(true), limiter)

	_, err := f.FetchWithRetry(context.Background(), server.URL+"/private/paper")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if pageHits.Load() != 0 {
		t.Error("disallowed page was requested")
	}

	if _, err := f.FetchWithRetry(context.Background(), server.URL+"/public/paper"); err != nil {
		t.Fatalf("Expected allowed fetch, got %v", err)
	}
	host, _ := hostname(server.URL)
	if limiter.Allow(host) {
		t.Error("expected crawl delay to throttle the host after one fetch")
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	allowed, delay, err := NewRobotsChecker("varlens-test/1.0", time.Second).CanFetch(context.Background(), server.URL+"/any")
	if err != nil || !allowed || delay != 0 {
		t.Errorf("expected allowed without delay, got allowed=%v delay=%v err=%v", allowed, delay, err)
	}
}

func TestProductName(t *testing.T) {
	if got := productName("varlens/0.1 (+https://github.com/ppiankov/varlens)"); got != "varlens" {
		t.Errorf("unexpected product %q", got)
	}
	if got := productName(""); got != "" {
		t.Errorf("unexpected product %q", got)
	}
}
