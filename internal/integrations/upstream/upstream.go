// Package upstream holds the HTTP plumbing shared by the third-party API
// integrations.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4096
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d from %s: %s", e.Service, e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Do sends req and returns at most maxBody bytes of a 2xx response body.
// Non-2xx responses become *HTTPStatusError carrying a truncated body.
func Do(client *http.Client, req *http.Request, service string, maxBody int64) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			Service:    service,
			StatusCode: res.StatusCode,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// TokenSource resolves an API token by parameter name.
type TokenSource interface {
	Token(ctx context.Context, name string) (string, error)
}

// LazyToken fetches a token on first use and reuses it for the lifetime of
// the process. Failed lookups are not cached.
type LazyToken struct {
	source TokenSource
	name   string

	mu    sync.Mutex
	token string
}

func NewLazyToken(source TokenSource, name string) (*LazyToken, error) {
	if source == nil {
		return nil, errors.New("upstream: token source must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("upstream: token name must not be empty")
	}
	return &LazyToken{source: source, name: name}, nil
}

func (l *LazyToken) Get(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return l.token, nil
	}
	token, err := l.source.Token(ctx, l.name)
	if err != nil {
		return "", err
	}
	l.token = token
	return token, nil
}
