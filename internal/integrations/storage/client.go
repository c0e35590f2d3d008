// Package storage uploads objects to Supabase Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"artifact-chat/internal/integrations/paramstore"
	"artifact-chat/internal/integrations/upstream"
)

const (
	tokenKey    = "supabase-token"
	maxResponse = 64 << 10
)

// Client talks to the Storage API of one Supabase project.
type Client struct {
	projectURL string
	httpClient *http.Client
	apiKey     *upstream.LazyToken
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for projectURL whose service key is read from
// <paramPrefix>/supabase-token on first use.
func NewClient(tokens upstream.TokenSource, paramPrefix, projectURL string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("storage: token source must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("storage: parameter prefix must not be empty")
	}
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" {
		return nil, errors.New("storage: project URL must not be empty")
	}
	apiKey, err := upstream.NewLazyToken(tokens, paramstore.TokenName(paramPrefix, tokenKey))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	c := &Client{
		projectURL: projectURL,
		httpClient: &http.Client{Timeout: upstream.DefaultTimeout},
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// escapeObject escapes each path segment of an object name, keeping the slashes.
func escapeObject(object string) string {
	parts := strings.Split(strings.Trim(object, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) objectURL(bucket, object string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.projectURL, url.PathEscape(bucket), escapeObject(object))
}

// PublicURL returns the URL at which a public bucket serves object.
func (c *Client) PublicURL(bucket, object string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.projectURL, url.PathEscape(bucket), escapeObject(object))
}

// Upload writes data to bucket/object, replacing any existing object.
func (c *Client) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	if strings.TrimSpace(bucket) == "" {
		return errors.New("storage: bucket must not be empty")
	}
	if strings.Trim(object, "/ ") == "" {
		return errors.New("storage: object name must not be empty")
	}
	if len(data) == 0 {
		return errors.New("storage: data must not be empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	apiKey, err := c.apiKey.Get(ctx)
	if err != nil {
		return fmt.Errorf("storage: resolve api key: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(bucket, object), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("apikey", apiKey)
	req.Header.Set("x-upsert", "true")

	if _, err := upstream.Do(c.httpClient, req, "storage", maxResponse); err != nil {
		return fmt.Errorf("storage: upload %s/%s: %w", bucket, object, err)
	}
	return nil
}
