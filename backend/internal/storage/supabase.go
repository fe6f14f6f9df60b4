package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStore uploads through the Supabase storage REST API.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseStore(baseURL, apiKey string, timeout time.Duration) *SupabaseStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func objectPath(bucket, name string) string {
	return url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

func (s *SupabaseStore) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (string, error) {
	endpoint := s.baseURL + "/storage/v1/object/" + objectPath(bucket, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to %s failed: %w", bucket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload to %s failed: %s: %s", bucket, resp.Status, strings.TrimSpace(string(msg)))
	}

	return s.baseURL + "/storage/v1/object/public/" + objectPath(bucket, name), nil
}
