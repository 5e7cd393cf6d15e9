package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "kondate-shopper/1.0 (+https://github.com/kondate-shopper)"

// Fetcher performs throttled GET requests for menu pages.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewFetcher creates a Fetcher that starts at most one request per interval.
// A non-positive interval disables throttling.
func NewFetcher(timeout, interval time.Duration) *Fetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// Get fetches url and returns the response body. The caller closes it.
func (f *Fetcher) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
