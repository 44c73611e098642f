package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// FetchStatus distinguishes a page that was fetched and yielded content
// from one that was fetched but had nothing extractable. Transport and
// HTTP failures are reported as errors, not statuses.
type FetchStatus int

const (
	StatusFetched FetchStatus = iota
	StatusNoContent
)

// FetchResult is the outcome of fetching one documentation page.
type FetchResult struct {
	Status   FetchStatus
	Title    string
	Markdown string
}

// Fetcher retrieves documentation pages politely: a shared rate limiter
// spaces requests and transient failures are retried with exponential
// backoff.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	userAgent   string
}

// NewFetcher creates a Fetcher with production defaults: one request per
// 500ms, three attempts, one second base backoff.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		maxAttempts: 3,
		backoffBase: time.Second,
		userAgent:   "docrag-ingest/1.0",
	}
}

// Fetch retrieves and extracts one page. Returns StatusNoContent when the
// page loads but has no extractable article, and an error only when every
// attempt failed.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := f.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, retryable, err := f.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch %s: %w", url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*FetchResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	title, markdown, err := extractArticle(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if markdown == "" {
		return &FetchResult{Status: StatusNoContent, Title: title}, false, nil
	}

	return &FetchResult{Status: StatusFetched, Title: title, Markdown: markdown}, false, nil
}
