// Package crawler fetches case candidates from HTML pages, the NewsAPI
// search endpoint and the Portal da Transparência sanctions API.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"casemap/internal/config"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultBufferKb  = 4096
)

// Scraper performs GET requests with config-driven retry logic.
type Scraper struct {
	client       *http.Client
	retryPolicy  config.RetryPolicy
	bufferSizeKb int
}

// NewScraper creates a scraper with the default retry policy.
func NewScraper() *Scraper {
	return NewScraperWithConfig(config.DefaultRetryPolicy(), defaultBufferKb)
}

// NewScraperWithConfig creates a scraper with a custom retry policy. Bodies
// are truncated to bufferSizeKb.
func NewScraperWithConfig(retryPolicy config.RetryPolicy, bufferSizeKb int) *Scraper {
	if bufferSizeKb <= 0 {
		bufferSizeKb = defaultBufferKb
	}

	return &Scraper{
		client: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
		},
		retryPolicy:  retryPolicy,
		bufferSizeKb: bufferSizeKb,
	}
}

// Response is a successful fetch.
type Response struct {
	Body       []byte
	StatusCode int
	Attempts   int
	Duration   time.Duration
}

// Get fetches url, retrying transport errors and 408/429/503/504 responses
// with exponential backoff. Extra headers are added to every attempt.
func (s *Scraper) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	var lastErr error

	maxAttempts := s.retryPolicy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleepCtx(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
			return nil, err
		}

		startTime := time.Now()
		body, status, retryable, err := s.do(ctx, url, header)
		totalDuration += time.Since(startTime)

		if err == nil {
			return &Response{Body: body, StatusCode: status, Attempts: attempt, Duration: totalDuration}, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, maxAttempts, err)

		if !retryable || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (s *Scraper) do(ctx context.Context, url string, header http.Header) ([]byte, int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent to avoid being blocked
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, resp.StatusCode, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// bufferSizeKb is in KB, convert to bytes
	limit := int64(s.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, true, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, false, nil
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}
