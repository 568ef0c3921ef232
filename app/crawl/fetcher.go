package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// HTTPFetcher owns its own client and transport so that concurrent query
// tasks never share connection state.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
	}
}

// NewHTTPFetcherFactory returns a factory producing a fresh HTTPFetcher per call.
func NewHTTPFetcherFactory(timeout time.Duration, userAgent string) FetcherFactory {
	return func() Fetcher {
		return NewHTTPFetcher(timeout, userAgent)
	}
}

// Fetch downloads url and returns its body decoded to UTF-8. Any failure,
// including an HTTP status of 400 or above, is reported as ErrTransport.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to create request: %v", ErrTransport, err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, resp.StatusCode, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to decode body: %v", ErrTransport, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read body: %v", ErrTransport, err)
	}

	return body, resp.StatusCode, nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
