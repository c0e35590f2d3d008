// Package logger builds the zerolog logger shared by the binaries.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	APP     = "app"
	CHAT    = "chat"
	HANDLER = "handler"
	AUDIO   = "audio"
	STORE   = "store"
)

// ParseLevel maps a LOG_LEVEL value to a zerolog level. Unknown or empty
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// New returns a JSON logger writing to w (stdout when nil).
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// For returns a child logger tagged with the given component namespace.
func For(l zerolog.Logger, namespace string) zerolog.Logger {
	return l.With().Str("component", namespace).Logger()
}
