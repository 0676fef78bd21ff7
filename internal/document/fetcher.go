package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/util"
	"github.com/ppiankov/varlens/internal/worker"
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

const maxAttempts = 3

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher downloads papers politely: robots.txt, per-host rate limit and retry on transient failures
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    *worker.Limiter
	delayed    sync.Map // Hosts whose crawl delay is applied to the limiter
}

// NewFetcher creates a fetcher from the http config. limiter may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		limiter:   limiter,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 10_000_000
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// FetchResult is a downloaded page
type FetchResult struct {
	HTML        string
	StatusCode  int
	ContentType string
	FinalURL    string
}

// statusError is a non-2xx response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Network errors retry; context errors never do
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrDisallowed)
}

// FetchWithRetry fetches rawURL, retrying 429, 5xx and network errors with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 && f.limiter != nil {
			if host, err := hostname(rawURL); err == nil {
				if _, seen := f.delayed.LoadOrStore(host, true); !seen {
					f.limiter.SetRate(host, 1/delay.Seconds(), 1)
				}
			}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-2)) * time.Second
			slog.Warn("retrying fetch", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", lastErr)
			fetchSleepFunc(backoff)
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// Fetch performs a single GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// hostname returns the host[:port] the limiter keys the URL by
func hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}
