package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_SendsMessageAndPrintsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, map[string]string{"userId": "u1", "message": "hello there", "artifactId": "b"}, in)
		_, _ = w.Write([]byte(`{"response":"hi","audio_url":"http://x/a.mp3"}`))
	}))
	defer srv.Close()

	getenv := func(key string) string {
		if key == "CHAT_API_BASE_URL" {
			return srv.URL
		}
		return ""
	}
	var out bytes.Buffer
	err := run(context.Background(), []string{"-user", "u1", "-artifact", "b", "hello", "there"}, getenv, &out)
	require.NoError(t, err)
	require.JSONEq(t, `{"response":"hi","audio_url":"http://x/a.mp3"}`, out.String())
}

func TestRun_PropagatesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), []string{"-base-url", srv.URL, "-user", "u1", "hi"}, func(string) string { return "" }, &out)
	require.ErrorContains(t, err, "500")
	require.Zero(t, out.Len())
}

func TestRun_BadFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-nope"}, func(string) string { return "" }, &out)
	require.Error(t, err)
}
