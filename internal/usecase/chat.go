package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"artifact-chat/internal/artifact"
	"artifact-chat/internal/domain"
	"artifact-chat/internal/logger"
)

const (
	defaultMaxHistory    = 10
	defaultMaxMessageLen = 1000
	defaultAudioBucket   = "minibox"
	audioContentType     = "audio/mpeg"
	audioTimeFormat      = "20060102150405"
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type HistoryStore interface {
	GetHistory(ctx context.Context, userID, artifactID string, limit int) ([]domain.Message, error)
	SaveExchange(ctx context.Context, userID, artifactID, question, answer string) error
}

type Synthesizer interface {
	Synthesize(ctx context.Context, voice domain.Voice, text string) ([]byte, error)
}

type AudioStore interface {
	Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error
	PublicURL(bucket, object string) string
}

type ArtifactCatalog interface {
	Lookup(id string) (artifact.Profile, bool)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Dependencies wires a ChatService. Speech and Audio are optional; when
// either is nil replies carry no audio.
type Dependencies struct {
	LLM       LLMClient
	History   HistoryStore
	Artifacts ArtifactCatalog
	Speech    Synthesizer
	Audio     AudioStore
}

type Options struct {
	MaxHistory    int
	MaxMessageLen int
	AudioBucket   string
}

type ChatService struct {
	llm       LLMClient
	history   HistoryStore
	artifacts ArtifactCatalog
	speech    Synthesizer
	audio     AudioStore
	log       zerolog.Logger
	audioLog  zerolog.Logger

	maxHistory    int
	maxMessageLen int
	audioBucket   string
	now           func() time.Time
}

type ChatInput struct {
	UserID     string
	Message    string
	ArtifactID string
}

// ChatOutput is the reply to one message. AudioURL is nil when no audio
// could be produced.
type ChatOutput struct {
	Response string
	AudioURL *string
}

// NewChatService builds the chat pipeline. log is tagged per component here,
// so pass an untagged logger.
func NewChatService(deps Dependencies, opts Options, log zerolog.Logger) (*ChatService, error) {
	if deps.LLM == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if deps.History == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("usecase: artifact catalog must not be nil")
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = defaultMaxMessageLen
	}
	if strings.TrimSpace(opts.AudioBucket) == "" {
		opts.AudioBucket = defaultAudioBucket
	}
	return &ChatService{
		llm:           deps.LLM,
		history:       deps.History,
		artifacts:     deps.Artifacts,
		speech:        deps.Speech,
		audio:         deps.Audio,
		log:           logger.For(log, logger.CHAT),
		audioLog:      logger.For(log, logger.AUDIO),
		maxHistory:    opts.MaxHistory,
		maxMessageLen: opts.MaxMessageLen,
		audioBucket:   strings.TrimSpace(opts.AudioBucket),
		now:           time.Now,
	}, nil
}

// Chat answers one message in the voice of the requested artifact, persists
// the exchange, and attaches synthesized audio when possible.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_user_id", nil)
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	artifactID := strings.TrimSpace(in.ArtifactID)
	profile, known := s.artifacts.Lookup(artifactID)
	if !known {
		s.log.Warn().Str("artifact_id", artifactID).Msg("unknown artifact, using fallback profile")
	}

	history, err := s.history.GetHistory(ctx, userID, artifactID, s.maxHistory)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "history_read_error", err)
	}

	answer, err := s.llm.Chat(ctx, profile.Model, buildPromptMessages(profile.SystemPrompt, message, history))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
			return ChatOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "openai_error", err)
	}
	answer = strings.TrimSpace(answer)

	if err := s.history.SaveExchange(ctx, userID, artifactID, message, answer); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "history_write_error", err)
	}

	out := ChatOutput{Response: answer}
	if audioURL, err := s.renderAudio(ctx, profile, userID, answer); err != nil {
		s.audioLog.Error().Err(err).
			Str("user_id", userID).
			Str("artifact_id", artifactID).
			Msg("audio pipeline failed")
	} else if audioURL != "" {
		out.AudioURL = &audioURL
	}
	return out, nil
}

// renderAudio returns "" without error when audio is not configured.
func (s *ChatService) renderAudio(ctx context.Context, profile artifact.Profile, userID, text string) (string, error) {
	if s.speech == nil || s.audio == nil {
		return "", nil
	}
	audio, err := s.speech.Synthesize(ctx, profile.Voice, text)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	object := audioObjectName(profile.ID, userID, s.now(), newUUID())
	if err := s.audio.Upload(ctx, s.audioBucket, object, audio, audioContentType); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	url := s.audio.PublicURL(s.audioBucket, object)
	s.audioLog.Debug().Str("audio_url", url).Msg("audio uploaded")
	return url, nil
}

// audioObjectName builds <artifact>/<user>_<UTC timestamp>_<suffix>.mp3.
// Slashes inside ids are flattened so each id stays one path segment.
func audioObjectName(artifactID, userID string, ts time.Time, suffix string) string {
	flatten := func(s, empty string) string {
		s = strings.ReplaceAll(strings.TrimSpace(s), "/", "_")
		if s == "" {
			return empty
		}
		return s
	}
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s/%s_%s_%s.mp3",
		flatten(artifactID, "unknown"),
		flatten(userID, "anonymous"),
		ts.UTC().Format(audioTimeFormat),
		suffix,
	)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
