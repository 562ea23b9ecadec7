package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SupabaseStore downloads objects from a Supabase Storage bucket using the
// service key.
type SupabaseStore struct {
	http       *http.Client
	baseURL    string
	serviceKey string
	bucket     string
}

func NewSupabaseStore(httpClient *http.Client, baseURL string, serviceKey string, bucket string) *SupabaseStore {
	return &SupabaseStore{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
	}
}

func (s *SupabaseStore) Open(ctx context.Context, locator string) (io.ReadCloser, int64, error) {
	objectPath, err := s.objectPath(locator)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/storage/v1/object/"+url.PathEscape(s.bucket)+"/"+objectPath, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download %q: %w", locator, err)
	}

	if resp.StatusCode == http.StatusOK {
		return resp.Body, resp.ContentLength, nil
	}

	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	// Storage answers 400 with an embedded 404 for missing objects.
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(snippet)), "not found")) {
		return nil, 0, fmt.Errorf("download %q: %w", locator, ErrNotFound)
	}

	return nil, 0, fmt.Errorf("download %q: storage returned %d: %s", locator, resp.StatusCode, snippet)
}

func (s *SupabaseStore) objectPath(locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if IsRemoteURL(trimmed) {
		return "", fmt.Errorf("locator %q is an absolute URL, not a bucket path", locator)
	}

	trimmed = strings.TrimPrefix(trimmed, "/")
	trimmed = strings.TrimPrefix(trimmed, s.bucket+"/")
	if trimmed == "" {
		return "", fmt.Errorf("storage locator is empty")
	}

	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("storage locator %q has an invalid segment", locator)
		}
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/"), nil
}
