// Package elevenlabs synthesizes speech with the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"artifact-chat/internal/domain"
	"artifact-chat/internal/integrations/paramstore"
	"artifact-chat/internal/integrations/upstream"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	tokenKey       = "elevenlabs-token"

	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_22050_32"

	maxAudio = 20 << 20
)

type speechRequest struct {
	Text          string               `json:"text"`
	ModelID       string               `json:"model_id"`
	VoiceSettings domain.VoiceSettings `json:"voice_settings"`
}

type Client struct {
	baseURL      string
	modelID      string
	outputFormat string
	httpClient   *http.Client
	apiKey       *upstream.LazyToken
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithModelID(modelID string) Option {
	return func(c *Client) {
		if modelID = strings.TrimSpace(modelID); modelID != "" {
			c.modelID = modelID
		}
	}
}

// NewClient creates a Client whose API key is read from
// <paramPrefix>/elevenlabs-token on first use.
func NewClient(tokens upstream.TokenSource, paramPrefix string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("elevenlabs: token source must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("elevenlabs: parameter prefix must not be empty")
	}
	apiKey, err := upstream.NewLazyToken(tokens, paramstore.TokenName(paramPrefix, tokenKey))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	c := &Client{
		baseURL:      defaultBaseURL,
		modelID:      DefaultModelID,
		outputFormat: DefaultOutputFormat,
		httpClient:   &http.Client{Timeout: 3 * upstream.DefaultTimeout},
		apiKey:       apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) speechURL(voiceID string) string {
	return fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.outputFormat))
}

// Synthesize renders text with voice and returns the encoded audio bytes.
func (c *Client) Synthesize(ctx context.Context, voice domain.Voice, text string) ([]byte, error) {
	if strings.TrimSpace(voice.ID) == "" {
		return nil, errors.New("elevenlabs: voice id must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	apiKey, err := c.apiKey.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: resolve api key: %w", err)
	}

	body, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: voice.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.speechURL(voice.ID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	audio, err := upstream.Do(c.httpClient, req, "elevenlabs", maxAudio)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio in response")
	}
	return audio, nil
}
