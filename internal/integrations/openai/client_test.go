package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"artifact-chat/internal/domain"
	"artifact-chat/internal/integrations/upstream"
)

// fakeTokens is a minimal upstream.TokenSource stub for use within this package.
type fakeTokens struct {
	val   string
	err   error
	calls int
	name  string
}

func (f *fakeTokens) Token(_ context.Context, name string) (string, error) {
	f.calls++
	f.name = name
	return f.val, f.err
}

var userHi = []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}}

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilTokens(t *testing.T) {
	_, err := NewClient(nil, "/artifact-chat")
	require.ErrorContains(t, err, "nil")
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	_, err := NewClient(&fakeTokens{}, " / ")
	require.ErrorContains(t, err, "prefix")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient(&fakeTokens{}, "/artifact-chat")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.NotNil(t, c.apiKey)
}

// ---------------------------------------------------------------------------
// Client.Chat
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server, tokens *fakeTokens) *Client {
	t.Helper()
	if tokens == nil {
		tokens = &fakeTokens{val: "sk-test"}
	}
	c, err := NewClient(
		tokens,
		"/artifact-chat/",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestClient_Chat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "ft:gpt-4o-mini:lamp", in.Model)
		require.Equal(t, []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "You are a lamp."},
			{Role: domain.RoleUser, Content: "hi"},
		}, in.Messages)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "  Hello from the lamp \n" }
			}]
		}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{val: "sk-test"}
	c := newTestClient(t, srv, tokens)
	resp, err := c.Chat(context.Background(), "ft:gpt-4o-mini:lamp", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "You are a lamp."},
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello from the lamp", resp)
	require.Equal(t, "/artifact-chat/open-ai-token", tokens.name)
}

func TestClient_Chat_KeyFetchedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{val: "sk-test"}
	c := newTestClient(t, srv, tokens)
	for i := 0; i < 3; i++ {
		_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
		require.NoError(t, err)
	}
	require.Equal(t, 1, tokens.calls, "SSM must only be called once per process lifetime")
}

func TestClient_Chat_KeyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent without a key")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeTokens{err: errors.New("ssm unavailable")})
	_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
	require.ErrorContains(t, err, "ssm unavailable")
}

func TestClient_Chat_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, nil)
			_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
			require.ErrorContains(t, err, "unexpected status")

			var statusErr *upstream.HTTPStatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, status, statusErr.HTTPStatusCode())
		})
	}
}

func TestClient_Chat_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
	require.ErrorContains(t, err, "decode response")
}

func TestClient_Chat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
	require.ErrorContains(t, err, "no choices")
}

func TestClient_Chat_BlankAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
	require.ErrorContains(t, err, "empty answer")
}

func TestClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Chat(context.Background(), "gpt-4o-mini", userHi)
	require.ErrorContains(t, err, "request failed")
}

func TestClient_Chat_ValidatesArguments(t *testing.T) {
	c, err := NewClient(&fakeTokens{val: "sk-test"}, "/artifact-chat")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "", userHi)
	require.ErrorContains(t, err, "model")

	_, err = c.Chat(context.Background(), "gpt-4o-mini", nil)
	require.ErrorContains(t, err, "messages")
}
