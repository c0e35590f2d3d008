// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultAudioBucket     = "minibox"
	DefaultMaxHistory      = 10
	DefaultMaxMessageLen   = 1000
	DefaultHTTPAddr        = ":8000"
	DefaultLogLevel        = "info"
	DefaultChatAPIBaseURL  = "http://127.0.0.1:8000"
	chatAPIBaseURLVariable = "CHAT_API_BASE_URL"
)

// Getenv matches os.Getenv so tests can pass a map lookup instead.
type Getenv func(key string) string

// Backend is the configuration shared by the Lambda and the local server.
type Backend struct {
	ParamPrefix    string
	StateTable     string
	DatabaseURL    string
	SupabaseURL    string
	AudioBucket    string
	ArtifactModels map[string]string
	MaxHistory     int
	MaxMessageLen  int
	HTTPAddr       string
	LogLevel       string
}

// LoadBackend reads and validates the backend configuration. All missing
// required variables are reported together.
func LoadBackend(getenv Getenv) (Backend, error) {
	if getenv == nil {
		return Backend{}, errors.New("config: getenv must not be nil")
	}

	cfg := Backend{
		ParamPrefix:   strings.TrimRight(strings.TrimSpace(getenv("PARAM_PREFIX")), "/"),
		StateTable:    strings.TrimSpace(getenv("STATE_TABLE")),
		DatabaseURL:   strings.TrimSpace(getenv("DATABASE_URL")),
		SupabaseURL:   strings.TrimRight(strings.TrimSpace(getenv("SUPABASE_URL")), "/"),
		AudioBucket:   envString(getenv, "AUDIO_BUCKET", DefaultAudioBucket),
		MaxHistory:    envInt(getenv, "MAX_HISTORY", DefaultMaxHistory),
		MaxMessageLen: envInt(getenv, "MAX_MESSAGE_LENGTH", DefaultMaxMessageLen),
		HTTPAddr:      envString(getenv, "HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:      envString(getenv, "LOG_LEVEL", DefaultLogLevel),
	}
	cfg.ArtifactModels = map[string]string{}
	if m := strings.TrimSpace(getenv("FT_MODEL_A")); m != "" {
		cfg.ArtifactModels["a"] = m
	}
	if m := strings.TrimSpace(getenv("FT_MODEL_B")); m != "" {
		cfg.ArtifactModels["b"] = m
	}

	var missing []string
	if cfg.ParamPrefix == "" {
		missing = append(missing, "PARAM_PREFIX")
	}
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.StateTable == "" && cfg.DatabaseURL == "" {
		missing = append(missing, "STATE_TABLE or DATABASE_URL")
	}
	if len(missing) > 0 {
		return Backend{}, fmt.Errorf("config: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// ChatAPIBaseURL returns the backend address used by chat clients.
func ChatAPIBaseURL(getenv Getenv) string {
	return envString(getenv, chatAPIBaseURLVariable, DefaultChatAPIBaseURL)
}

func envString(getenv Getenv, key, def string) string {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(getenv Getenv, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
