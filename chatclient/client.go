// Package chatclient posts chat messages to an artifact-chat backend.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const chatPath = "/chat"

// ChatRequest is the body of a single chat call. Every field is sent as-is;
// an unset ArtifactID is still sent under the artifactId key as "".
type ChatRequest struct {
	UserID     string `json:"userId"`
	Message    string `json:"message"`
	ArtifactID string `json:"artifactId"`
}

// ChatResponse holds the decoded response body, passed through untouched.
// Body is whatever JSON value the backend sent: an object decodes to
// map[string]any, an array to []any, and so on. The backend conventionally
// returns an object with "response" and "audio_url".
type ChatResponse struct {
	Body any
}

func (r ChatResponse) field(key string) string {
	obj, _ := r.Body.(map[string]any)
	s, _ := obj[key].(string)
	return s
}

// Text returns the conventional "response" field, or "" when the body is not
// an object or the field is absent or not a string.
func (r ChatResponse) Text() string {
	return r.field("response")
}

// AudioURL returns the conventional "audio_url" field. It is empty when the
// backend returned null or omitted it.
func (r ChatResponse) AudioURL() string {
	return r.field("audio_url")
}

// MarshalJSON writes Body back out unchanged.
func (r ChatResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatclient: chat request failed (status: %d)", e.StatusCode)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends chat messages to <baseURL>/chat. It holds no mutable state and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New returns a Client targeting baseURL. The URL is not interpreted beyond
// appending /chat.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chatclient: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) chatURL() string {
	return c.baseURL + chatPath
}

// SendChatMessage issues exactly one POST and returns the parsed JSON body,
// whatever its shape. Trailing data after the JSON value is a decode error.
// Transport and decode errors are returned unwrapped.
func (c *Client) SendChatMessage(ctx context.Context, in ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return ChatResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL(), bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return ChatResponse{}, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return ChatResponse{}, &StatusError{StatusCode: res.StatusCode}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return ChatResponse{}, err
	}
	var out ChatResponse
	if err := json.Unmarshal(raw, &out.Body); err != nil {
		return ChatResponse{}, err
	}
	return out, nil
}
