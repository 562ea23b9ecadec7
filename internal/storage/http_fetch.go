package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// IsRemoteURL reports whether locator is an absolute http(s) URL.
func IsRemoteURL(locator string) bool {
	lower := strings.ToLower(strings.TrimSpace(locator))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// URLFetcher downloads a locator that is itself an absolute URL.
type URLFetcher struct {
	http *http.Client
}

func NewURLFetcher(httpClient *http.Client) *URLFetcher {
	return &URLFetcher{http: httpClient}
}

func (f *URLFetcher) Open(ctx context.Context, locator string) (io.ReadCloser, int64, error) {
	if !IsRemoteURL(locator) {
		return nil, 0, fmt.Errorf("locator %q is not an http(s) URL", locator)
	}

	target, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || target.Host == "" {
		return nil, 0, fmt.Errorf("parse locator %q: invalid URL", locator)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %q: %w", target.Redacted(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, 0, fmt.Errorf("fetch %q: %w", target.Redacted(), ErrNotFound)
		}
		return nil, 0, fmt.Errorf("fetch %q: HTTP %d", target.Redacted(), resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}
