package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions, caching one parsed file per host
type RobotsChecker struct {
	mu         sync.RWMutex
	hosts      map[string]*robotstxt.RobotsData
	httpClient *http.Client
	agent      string
}

// NewRobotsChecker creates a checker matching groups by the product name of userAgent
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		hosts:      make(map[string]*robotstxt.RobotsData),
		httpClient: &http.Client{Timeout: timeout},
		agent:      productName(userAgent),
	}
}

// CanFetch reports whether rawURL may be fetched and the crawl delay the host asks for.
// An unreachable or unparseable robots.txt allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsFor(ctx, u)
	if err != nil {
		slog.Debug("robots.txt unavailable, allowing", "host", u.Host, "error", err)
		return true, 0, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	var delay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, r.agent), delay, nil
}

func (r *RobotsChecker) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, ok := r.hosts[u.Host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all
	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.hosts[u.Host] = data
	r.mu.Unlock()
	return data, nil
}

// productName reduces "varlens/0.1 (+https://...)" to "varlens"
func productName(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
